package config

import (
	"fmt"
	"strings"
)

// ConfigurationError describes one problem found while loading or checking
// the configuration.
type ConfigurationError struct {
	FilePath string
	FileName string
	// Category is the config section, e.g. "validator" or "catalogue".
	Category string
	// ErrorType is one of "parse", "validation" or "io".
	ErrorType   string
	Message     string
	Details     string
	LineNumber  int
	Suggestions []string
}

func (ce ConfigurationError) Error() string {
	source := ce.FileName
	if source == "" {
		source = "configuration"
	}
	return fmt.Sprintf("[%s] %s: %s", ce.Category, source, ce.Message)
}

// DetailedError renders the error with its location and suggestions, one
// item per line.
func (ce ConfigurationError) DetailedError() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration Error: %s\n", ce.Message)
	if ce.FilePath != "" {
		if ce.LineNumber > 0 {
			fmt.Fprintf(&b, "  File: %s:%d\n", ce.FilePath, ce.LineNumber)
		} else {
			fmt.Fprintf(&b, "  File: %s\n", ce.FilePath)
		}
	}
	fmt.Fprintf(&b, "  Section: %s (%s)\n", ce.Category, ce.ErrorType)
	if ce.Details != "" {
		fmt.Fprintf(&b, "  Details: %s\n", ce.Details)
	}
	if len(ce.Suggestions) > 0 {
		b.WriteString("  Suggestions:\n")
		for _, s := range ce.Suggestions {
			fmt.Fprintf(&b, "    - %s\n", s)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ConfigurationErrorCollection gathers every problem of one validation pass.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError
}

func (cec ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// GetErrorsByCategory returns the errors of one config section.
func (cec *ConfigurationErrorCollection) GetErrorsByCategory(category string) []ConfigurationError {
	var out []ConfigurationError
	for _, err := range cec.Errors {
		if err.Category == category {
			out = append(out, err)
		}
	}
	return out
}

// GetDetailedReport lists every error with DetailedError, numbered.
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d configuration error(s):\n", len(cec.Errors))
	for i, err := range cec.Errors {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, err.DetailedError())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
