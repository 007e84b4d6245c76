package formatting

import (
	"encoding/json"
	"io"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// JSONFormatter writes indented JSON. Reports are written in full,
// including every recorded HTTP exchange.
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) FormatReport(w io.Writer, rep report.Report) error {
	return f.encode(w, rep)
}

func (f *JSONFormatter) FormatReports(w io.Writer, reps []report.Report) error {
	if reps == nil {
		reps = []report.Report{}
	}
	return f.encode(w, reps)
}

func (f *JSONFormatter) FormatParameters(w io.Writer, params []fixture.Parameter) error {
	if params == nil {
		params = []fixture.Parameter{}
	}
	return f.encode(w, params)
}

// SetOptions updates the formatter options
func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

func (f *JSONFormatter) encode(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
