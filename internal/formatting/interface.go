// Package formatting renders validation reports and parameter lists for
// the command line and for files.
//
// Formats: table (go-pretty, coloured), console (one line per step), JSON,
// YAML and user templates with the sprig function set.
package formatting

import (
	"fmt"
	"io"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"    // Rich table output
	FormatConsole  OutputFormat = "console"  // One line per step
	FormatJSON     OutputFormat = "json"     // JSON output
	FormatYAML     OutputFormat = "yaml"     // YAML output
	FormatTemplate OutputFormat = "template" // text/template with sprig
)

// Formats lists the accepted --output values.
var Formats = []OutputFormat{FormatTable, FormatConsole, FormatJSON, FormatYAML, FormatTemplate}

// ParseFormat checks an --output value.
func ParseFormat(s string) (OutputFormat, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of %v)", s, Formats)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
	// Verbose includes the HTTP exchanges of every step.
	Verbose bool
	// Template is the template text used by FormatTemplate.
	Template string
}

// Formatter writes reports in one output format.
type Formatter interface {
	FormatReport(w io.Writer, rep report.Report) error
	// FormatReports writes the reports of a batch run.
	FormatReports(w io.Writer, reps []report.Report) error
	FormatParameters(w io.Writer, params []fixture.Parameter) error

	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) (Formatter, error)
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options. Only
// the template format can fail, when the template does not parse.
func (f *factory) CreateFormatter(options Options) (Formatter, error) {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options), nil
	case FormatYAML:
		return NewYAMLFormatter(options), nil
	case FormatTemplate:
		return NewTemplateFormatter(options)
	case FormatConsole:
		return NewConsoleFormatter(options), nil
	case FormatTable, "":
		return NewTableFormatter(options), nil
	}
	return nil, fmt.Errorf("unknown output format %q", options.Format)
}
