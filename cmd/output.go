package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/formatting"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/reportstore"
)

// outputFlags are the rendering flags of every command printing reports.
type outputFlags struct {
	format       string
	templateFile string
	verbose      bool
	noColor      bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	names := make([]string, len(formatting.Formats))
	for i, f := range formatting.Formats {
		names[i] = string(f)
	}
	cmd.Flags().StringVarP(&o.format, "output", "o", string(formatting.FormatTable),
		"output format: "+strings.Join(names, ", "))
	cmd.Flags().StringVar(&o.templateFile, "template", "", "text/template file used with --output template")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "include the HTTP exchanges of every step")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "disable colored output")
}

func (o outputFlags) formatter() (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	opts := formatting.Options{
		Format:  format,
		Color:   !o.noColor && os.Getenv("NO_COLOR") == "",
		Verbose: o.verbose,
	}
	if o.templateFile != "" {
		data, err := os.ReadFile(o.templateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		opts.Template = string(data)
	}
	return formatting.NewFactory().CreateFormatter(opts)
}

// parseFailOn reads a --fail-on value. "never" disables the check.
func parseFailOn(value string) (*report.Status, error) {
	if value == "" || strings.EqualFold(value, "never") {
		return nil, nil
	}
	st, err := report.ParseStatus(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --fail-on: %w", err)
	}
	return &st, nil
}

// checkThreshold returns a ThresholdError for the worst report at or above
// threshold.
func checkThreshold(threshold *report.Status, reps ...report.Report) error {
	if threshold == nil {
		return nil
	}
	worst := report.StatusPending
	for _, r := range reps {
		worst = report.Max(worst, r.Worst())
	}
	if worst.AtLeast(*threshold) {
		return &ThresholdError{Worst: worst, Threshold: *threshold}
	}
	return nil
}

// saveReports keeps reports in dir when one is configured.
func saveReports(dir string, reps ...report.Report) {
	if dir == "" {
		return
	}
	store := reportstore.New(dir)
	for _, r := range reps {
		if r.ID == "" {
			continue
		}
		if err := store.Save(r); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save report %s: %v\n", r.ID, err)
		}
	}
}

// parseParams turns repeated name=value flags into overrides.
func parseParams(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, kv := range values {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", kv)
		}
		out[name] = value
	}
	return out, nil
}
