package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// BatchFile is the YAML document read by the batch command.
//
//	runs:
//	  - url: https://ewp.example.org/inst
//	    api: institutions
//	    version: 2.1.0
//	  - url: https://ewp.example.org/iias
//	    api: iias
//	    endpoint: index
//	    version: 7.0.0
//	    parameters:
//	      hei_id: uw.edu.pl
type BatchFile struct {
	Parallel int             `yaml:"parallel,omitempty"`
	Runs     []suite.Request `yaml:"runs"`
}

type batchOptions struct {
	parallel int
	failOn   string
	output   outputFlags
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Validate a list of endpoints",
		Long: `Runs every validation listed in a YAML file, several at a time, and
prints all reports. Runs that cannot start (unknown API, bad parameters) are
reported on stderr and count as errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "runs at a time (default from the file or the config)")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "failure", "exit with code 4 when any worst status is at least this (or never)")
	opts.output.register(cmd)
	return cmd
}

// readBatchFile parses path. Every run needs url, api and version.
func readBatchFile(path string) (BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BatchFile{}, fmt.Errorf("failed to read batch file: %w", err)
	}
	var bf BatchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return BatchFile{}, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}
	if len(bf.Runs) == 0 {
		return BatchFile{}, fmt.Errorf("batch file %s lists no runs", path)
	}
	for i, r := range bf.Runs {
		if r.URL == "" || r.API == "" || r.Version == "" {
			return BatchFile{}, fmt.Errorf("run %d of %s needs url, api and version", i+1, path)
		}
	}
	return bf, nil
}

func runBatch(cmd *cobra.Command, path string, opts *batchOptions) error {
	formatter, err := opts.output.formatter()
	if err != nil {
		return err
	}
	threshold, err := parseFailOn(opts.failOn)
	if err != nil {
		return err
	}
	bf, err := readBatchFile(path)
	if err != nil {
		return err
	}
	cfg, err := loadSettings(true)
	if err != nil {
		return err
	}

	parallel := cfg.Validator.Parallel
	if bf.Parallel > 0 {
		parallel = bf.Parallel
	}
	if opts.parallel > 0 {
		parallel = opts.parallel
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildValidator(ctx, cfg)
	if err != nil {
		return err
	}
	logging.Info("Batch", "Running %d validations, %d at a time", len(bf.Runs), parallel)
	results, waitErr := deps.validator.ValidateAll(ctx, bf.Runs, parallel)

	var (
		reps   []report.Report
		failed int
	)
	for _, res := range results {
		if res.Report.ID != "" {
			reps = append(reps, res.Report)
		}
		if res.Err != nil && res.Report.ID == "" {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Request, res.Err)
		}
	}

	saveReports(cfg.Reports.Dir, reps...)
	if err := formatter.FormatReports(cmd.OutOrStdout(), reps); err != nil {
		return fmt.Errorf("failed to render reports: %w", err)
	}
	if waitErr != nil {
		return fmt.Errorf("batch interrupted: %w", waitErr)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs could not start", failed, len(bf.Runs))
	}
	return checkThreshold(threshold, reps...)
}
