package formatting

import (
	"fmt"
	"io"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// ConsoleFormatter prints one line per step, the way steps are shown
// while a run is in progress.
type ConsoleFormatter struct {
	options Options
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	return &ConsoleFormatter{
		options: options,
	}
}

func (f *ConsoleFormatter) FormatReport(w io.Writer, rep report.Report) error {
	if !f.options.Quiet {
		fmt.Fprintf(w, "%s%s %s at %s\n", rep.API, endpointSuffix(rep.Endpoint), rep.Version, rep.URL)
	}
	for _, s := range rep.Steps {
		fmt.Fprintln(w, StepLine(s))
		if detail := stepDetail(s); detail != "" {
			fmt.Fprintln(w, indent(detail, "    "))
		}
	}
	fmt.Fprintln(w, Summary(rep))
	return nil
}

func (f *ConsoleFormatter) FormatReports(w io.Writer, reps []report.Report) error {
	for _, rep := range reps {
		fmt.Fprintf(w, "%s %s%s %s at %s: %s\n", statusSymbol(rep.Worst()), rep.API, endpointSuffix(rep.Endpoint),
			rep.Version, rep.URL, Summary(rep))
	}
	return nil
}

func (f *ConsoleFormatter) FormatParameters(w io.Writer, params []fixture.Parameter) error {
	if len(params) == 0 {
		fmt.Fprintln(w, "This API takes no parameters.")
		return nil
	}
	for i, p := range params {
		fmt.Fprintf(w, "  %d. %-30s - %s\n", i+1, p.Name, p.Description)
	}
	return nil
}

// SetOptions updates the formatter options
func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}

// StepLine renders a finished step on one line.
func StepLine(s report.Step) string {
	if s.Combination != "" {
		return fmt.Sprintf("%s [%s] %s", engine.Symbol(s), s.Combination, s.Name)
	}
	return fmt.Sprintf("%s %s", engine.Symbol(s), s.Name)
}

func stepDetail(s report.Step) string {
	if s.Skipped {
		return s.SkipReason
	}
	if s.Status == report.StatusSuccess {
		return ""
	}
	return s.Message
}

func statusSymbol(st report.Status) string {
	return engine.Symbol(report.Step{Status: st})
}
