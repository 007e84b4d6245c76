package cmd

import (
	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/apis"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
)

type parametersOptions struct {
	api      string
	endpoint string
	version  string
	output   outputFlags
}

func newParametersCmd() *cobra.Command {
	opts := &parametersOptions{}
	cmd := &cobra.Command{
		Use:   "parameters",
		Short: "List the parameters an API suite accepts",
		Long: `Lists the parameters that can be passed with --param to a validation of
the given API and version. Dependent parameters are only accepted together
with the parameters they depend on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParameters(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.api, "api", "", "API name (required)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "endpoint of APIs with several")
	cmd.Flags().StringVar(&opts.version, "version", "", "API version (required)")
	opts.output.register(cmd)
	_ = cmd.MarkFlagRequired("api")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func runParameters(cmd *cobra.Command, opts *parametersOptions) error {
	formatter, err := opts.output.formatter()
	if err != nil {
		return err
	}
	// Listing needs neither a catalogue nor credentials.
	params, err := suite.NewValidator(apis.Registry()).ListParameters(opts.api, opts.endpoint, opts.version)
	if err != nil {
		return err
	}
	return formatter.FormatParameters(cmd.OutOrStdout(), params)
}
