package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
)

type validateOptions struct {
	url         string
	api         string
	endpoint    string
	version     string
	security    string
	params      []string
	interactive bool
	quiet       bool
	failOn      string
	output      outputFlags
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate one API endpoint",
		Long: `Runs the conformance suite of an API against one endpoint URL.

The endpoint must be registered in the catalogue for the given API and
version. Parameters the suite needs are discovered from the catalogue and
from other APIs of the same host; use --param to pin them, or --interactive
to be asked for each of them.

Examples:
  ewp-validator validate --url https://ewp.example.org/inst --api institutions --version 2.1.0
  ewp-validator validate --url https://ewp.example.org/iias --api iias --endpoint index \
      --version 7.0.0 --param hei_id=uw.edu.pl --security SHTT

The exit code is 4 when the worst status is at or above --fail-on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "endpoint URL to validate (required)")
	cmd.Flags().StringVar(&opts.api, "api", "", "API name, e.g. institutions (required)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "endpoint of APIs with several, e.g. index")
	cmd.Flags().StringVar(&opts.version, "version", "", "API version declared in the catalogue (required)")
	cmd.Flags().StringVar(&opts.security, "security", "", "only test this four letter security code, e.g. HTTT")
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "parameter value as name=value (repeatable)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for parameters that were not given")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "disable the progress spinner")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "failure", "exit with code 4 when the worst status is at least this (or never)")
	opts.output.register(cmd)

	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("api")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func runValidate(cmd *cobra.Command, opts *validateOptions) error {
	formatter, err := opts.output.formatter()
	if err != nil {
		return err
	}
	threshold, err := parseFailOn(opts.failOn)
	if err != nil {
		return err
	}
	overrides, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		prog  *progress
		extra []suite.Option
	)
	if !opts.quiet {
		prog = newProgress(cmd.ErrOrStderr(), fmt.Sprintf("Validating %s", opts.url))
		extra = append(extra, suite.WithObserver(prog))
	}
	deps, err := buildValidator(ctx, cfg, extra...)
	if err != nil {
		return err
	}

	if opts.interactive {
		params, err := deps.validator.ListParameters(opts.api, opts.endpoint, opts.version)
		if err != nil {
			return err
		}
		ask, closeFn, err := readlineAsk(os.Stdin, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		overrides, err = askParameters(params, overrides, ask)
		_ = closeFn()
		if err != nil {
			return err
		}
	}

	req := suite.Request{
		URL:        opts.url,
		API:        opts.api,
		Endpoint:   opts.endpoint,
		Version:    opts.version,
		Security:   opts.security,
		Parameters: overrides,
	}

	if prog != nil {
		prog.Start()
	}
	rep, runErr := deps.validator.Validate(ctx, req)
	if prog != nil {
		prog.Stop()
	}
	if rep.ID == "" {
		return runErr
	}

	saveReports(cfg.Reports.Dir, rep)
	if err := formatter.FormatReport(cmd.OutOrStdout(), rep); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if errors.Is(runErr, engine.ErrCancelled) {
		return fmt.Errorf("validation interrupted: %w", runErr)
	}
	if runErr != nil {
		return runErr
	}
	return checkThreshold(threshold, rep)
}

// commandContext is cmd.Context, or Background when the command was run
// without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
