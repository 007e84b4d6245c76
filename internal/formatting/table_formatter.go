package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	pkgstrings "github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/strings"
)

// messageWidth wraps step messages in the table.
const messageWidth = 80

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatReport writes a header, one row per step and the status counts.
func (f *TableFormatter) FormatReport(w io.Writer, rep report.Report) error {
	if !f.options.Quiet {
		fmt.Fprintf(w, "%s %s %s\n", f.color(text.FgHiCyan, "API:"), rep.API+endpointSuffix(rep.Endpoint), rep.Version)
		fmt.Fprintf(w, "%s %s\n", f.color(text.FgHiCyan, "URL:"), rep.URL)
		if rep.Security != "" {
			fmt.Fprintf(w, "%s %s\n", f.color(text.FgHiCyan, "Security:"), rep.Security)
		}
		fmt.Fprintf(w, "%s %s\n", f.color(text.FgHiCyan, "Report:"), rep.ID)
	}

	t := f.createTable(w)
	t.AppendHeader(table.Row{
		f.color(text.FgHiCyan, "#"),
		f.color(text.FgHiCyan, "STATUS"),
		f.color(text.FgHiCyan, "COMBINATION"),
		f.color(text.FgHiCyan, "STEP"),
		f.color(text.FgHiCyan, "MESSAGE"),
	})
	for i, s := range rep.Steps {
		t.AppendRow(table.Row{i + 1, f.status(s), s.Combination, s.Name, f.message(s)})
	}
	t.Render()
	fmt.Fprintln(w, Summary(rep))

	if f.options.Verbose {
		for i, s := range rep.Steps {
			f.writeExchanges(w, i+1, s)
		}
	}
	if rep.Aborted && !f.options.Quiet {
		fmt.Fprintf(w, "%s %s\n", f.color(text.FgRed, "Aborted:"), rep.AbortReason)
	}
	return nil
}

func (f *TableFormatter) FormatReports(w io.Writer, reps []report.Report) error {
	if len(reps) == 0 {
		fmt.Fprintln(w, f.formatEmptyMessage("📋", "No reports"))
		return nil
	}
	t := f.createTable(w)
	t.AppendHeader(table.Row{
		f.color(text.FgHiCyan, "API"),
		f.color(text.FgHiCyan, "VERSION"),
		f.color(text.FgHiCyan, "URL"),
		f.color(text.FgHiCyan, "WORST"),
		f.color(text.FgHiCyan, "SUMMARY"),
	})
	for _, rep := range reps {
		t.AppendRow(table.Row{rep.API + endpointSuffix(rep.Endpoint), rep.Version, rep.URL, f.statusText(rep.Worst()), Summary(rep)})
	}
	t.Render()
	return nil
}

// FormatParameters lists parameters with their dependencies.
func (f *TableFormatter) FormatParameters(w io.Writer, params []fixture.Parameter) error {
	if len(params) == 0 {
		fmt.Fprintln(w, f.formatEmptyMessage("📋", "This API takes no parameters"))
		return nil
	}
	t := f.createTable(w)
	t.AppendHeader(table.Row{
		f.color(text.FgHiCyan, "NAME"),
		f.color(text.FgHiCyan, "DEPENDS ON"),
		f.color(text.FgHiCyan, "BLOCKED BY"),
		f.color(text.FgHiCyan, "DESCRIPTION"),
	})
	for _, p := range params {
		name := p.Name
		if p.Optional {
			name += " (optional)"
		}
		t.AppendRow(table.Row{name, strings.Join(p.DependsOn, ", "), strings.Join(p.BlockedBy, ", "), p.Description})
	}
	t.Render()
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: messageWidth},
		{Number: 5, WidthMax: messageWidth},
	})
	return t
}

func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s", f.color(text.FgYellow, icon), f.color(text.FgYellow, message))
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) status(s report.Step) string {
	if s.Skipped {
		return f.color(text.FgHiBlack, engine.Symbol(s)+" SKIPPED")
	}
	return engine.Symbol(s) + " " + f.statusText(s.Status)
}

func (f *TableFormatter) statusText(st report.Status) string {
	switch st {
	case report.StatusSuccess:
		return f.color(text.FgGreen, st.String())
	case report.StatusNotice:
		return f.color(text.FgHiBlue, st.String())
	case report.StatusWarning:
		return f.color(text.FgYellow, st.String())
	case report.StatusFailure, report.StatusError:
		return f.color(text.FgRed, st.String())
	}
	return st.String()
}

func (f *TableFormatter) message(s report.Step) string {
	switch {
	case s.Skipped:
		return s.SkipReason
	case s.Status == report.StatusSuccess:
		return ""
	case f.options.Verbose:
		return s.Message
	}
	return pkgstrings.Truncate(s.Message, 3*messageWidth)
}

func (f *TableFormatter) writeExchanges(w io.Writer, n int, s report.Step) {
	if len(s.Requests) == 0 && len(s.Responses) == 0 && s.Trace == "" {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", f.color(text.FgHiCyan, fmt.Sprintf("[%d]", n)), s.Name)
	for _, e := range s.Requests {
		fmt.Fprintf(w, "  > %s %s\n", e.Method, e.URL)
		writeHeaders(w, "  > ", e)
		if e.Body != "" {
			fmt.Fprintf(w, "  >\n%s\n", indent(e.Body, "    "))
		}
	}
	for _, e := range s.Responses {
		fmt.Fprintf(w, "  < HTTP %d\n", e.Status)
		writeHeaders(w, "  < ", e)
		if e.Body != "" {
			fmt.Fprintf(w, "  <\n%s\n", indent(e.Body, "    "))
		}
	}
	if s.Trace != "" {
		fmt.Fprintf(w, "%s\n", indent(s.Trace, "  ! "))
	}
}
