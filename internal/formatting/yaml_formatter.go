package formatting

import (
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// YAMLFormatter writes YAML. Field names follow the JSON tags of the
// report types.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) FormatReport(w io.Writer, rep report.Report) error {
	return f.write(w, rep)
}

func (f *YAMLFormatter) FormatReports(w io.Writer, reps []report.Report) error {
	if reps == nil {
		reps = []report.Report{}
	}
	return f.write(w, reps)
}

func (f *YAMLFormatter) FormatParameters(w io.Writer, params []fixture.Parameter) error {
	if params == nil {
		params = []fixture.Parameter{}
	}
	return f.write(w, params)
}

// SetOptions updates the formatter options
func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}

func (f *YAMLFormatter) write(w io.Writer, v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	_, err = w.Write(out)
	return err
}
