package formatting

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// DefaultTemplate is used when --output template is given without a file.
const DefaultTemplate = `{{ .API }}{{ with .Endpoint }}/{{ . }}{{ end }} {{ .Version }} at {{ .URL }}
{{ range $i, $s := .Steps -}}
{{ add1 $i | printf "%3d" }}. {{ symbol $s }} {{ with $s.Combination }}[{{ . }}] {{ end }}{{ $s.Name }}
{{- if $s.Skipped }}
       {{ $s.SkipReason }}
{{- else if ne $s.Status.String "SUCCESS" }}
       {{ $s.Message | trim | wrapWith 100 "\n       " }}
{{- end }}
{{ end -}}
{{ summary . }}
`

// TemplateFormatter executes a text/template. The template receives a
// report.Report for FormatReport, and is run once per report for
// FormatReports. Besides sprig, the functions symbol, status and summary
// are available.
type TemplateFormatter struct {
	options Options
	tmpl    *template.Template
}

// NewTemplateFormatter parses options.Template, or DefaultTemplate when it
// is empty.
func NewTemplateFormatter(options Options) (Formatter, error) {
	src := options.Template
	if src == "" {
		src = DefaultTemplate
	}
	tmpl, err := template.New("report").Funcs(templateFuncs()).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &TemplateFormatter{options: options, tmpl: tmpl}, nil
}

func templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["symbol"] = engine.Symbol
	funcs["status"] = func(s report.Status) string { return s.String() }
	funcs["summary"] = Summary
	return funcs
}

func (f *TemplateFormatter) FormatReport(w io.Writer, rep report.Report) error {
	if err := f.tmpl.Execute(w, rep); err != nil {
		return fmt.Errorf("failed to render report template: %w", err)
	}
	return nil
}

func (f *TemplateFormatter) FormatReports(w io.Writer, reps []report.Report) error {
	for _, rep := range reps {
		if err := f.FormatReport(w, rep); err != nil {
			return err
		}
	}
	return nil
}

// FormatParameters falls back to the console listing; report templates do
// not apply to parameters.
func (f *TemplateFormatter) FormatParameters(w io.Writer, params []fixture.Parameter) error {
	return NewConsoleFormatter(f.options).FormatParameters(w, params)
}

// SetOptions updates the formatter options. The template is not reparsed.
func (f *TemplateFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TemplateFormatter) GetOptions() Options {
	return f.options
}
