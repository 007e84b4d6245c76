package verifier

import (
	"fmt"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

const preamble = "The response has proper HTTP status and it passed the schema validation. "

// Result is a failed verification.
type Result struct {
	Severity report.Status
	Message  string
}

func (r *Result) Error() string { return r.Message }

// Verifier is an assertion over a parsed response body.
type Verifier interface {
	// Verify returns nil, a *Result, or an error when the selector itself
	// is broken.
	Verify(doc Document) error
	// Passed reports the outcome of the last Verify call.
	Passed() bool
}

type kind int

const (
	kindExactly kind = iota
	kindContain
	kindNotContain
	kindEmpty
	kindNotEmpty
	kindCorrect
)

// Check is the Verifier returned by Factory.
type Check struct {
	path     []string
	kind     kind
	values   []string
	severity report.Status
	message  string
	passed   bool
}

// WithSeverity replaces the failure severity (FAILURE by default).
func (c *Check) WithSeverity(s report.Status) *Check {
	c.severity = s
	return c
}

// WithMessage replaces the failure message.
func (c *Check) WithMessage(msg string) *Check {
	c.message = msg
	return c
}

func (c *Check) Passed() bool { return c.passed }

func (c *Check) Verify(doc Document) error {
	c.passed = false
	if c.kind == kindCorrect {
		c.passed = true
		return nil
	}
	found, err := doc.Select(c.path...)
	if err != nil {
		return err
	}
	if msg := c.evaluate(found); msg != "" {
		if c.message != "" {
			msg = c.message
		}
		return &Result{Severity: c.severity, Message: msg}
	}
	c.passed = true
	return nil
}

func (c *Check) name() string {
	if len(c.path) == 0 {
		return "element"
	}
	return c.path[len(c.path)-1]
}

func (c *Check) evaluate(found []string) string {
	name := c.name()
	switch c.kind {
	case kindExactly:
		unexpected := subtract(found, c.values)
		if len(unexpected) > 0 {
			return fmt.Sprintf(preamble+"However, the set of returned %ss doesn't match what we expect. "+
				"It contains those unexpected values: %s It should contain the following values: %s",
				name, list(unexpected), list(c.values))
		}
		missing := subtract(c.values, found)
		if len(missing) > 0 {
			return fmt.Sprintf(preamble+"However, the set of returned %ss doesn't match what we expect. "+
				"It does not contain those expected values: %s It should contain the following values: %s",
				name, list(missing), list(c.values))
		}
	case kindContain:
		if missing := missingFrom(found, c.values); len(missing) > 0 {
			return fmt.Sprintf(preamble+"However the set of returned <%s>s doesn't match what we expect. "+
				"It should contain <%s>%s</%s>, but it doesn't.", name, name, list(c.values), name)
		}
	case kindNotContain:
		var bad []string
		for _, v := range c.values {
			if contains(found, v) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			return fmt.Sprintf(preamble+"However the set of returned <%s>s contains the following, "+
				"which it shouldn't: %s", name, list(bad))
		}
	case kindEmpty:
		if len(found) > 0 {
			return fmt.Sprintf(preamble+"However the response contains <%s> elements, but it shouldn't. "+
				"It contains the following: %s", name, list(found))
		}
	case kindNotEmpty:
		if len(found) == 0 {
			return fmt.Sprintf(preamble+"However the response doesn't contain any <%s> element, "+
				"but it should.", name)
		}
	}
	return ""
}

// subtract removes one occurrence of each b from a, keeping multiplicity.
func subtract(a, b []string) []string {
	rest := append([]string(nil), a...)
	for _, v := range b {
		for i, r := range rest {
			if r == v {
				rest = append(rest[:i], rest[i+1:]...)
				break
			}
		}
	}
	return rest
}

func missingFrom(found, wanted []string) []string {
	var out []string
	for _, w := range wanted {
		if !contains(found, w) {
			out = append(out, w)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func list(vs []string) string {
	return "[" + strings.Join(vs, ", ") + "]"
}

// Func adapts a custom check. fn returns "" when the document is fine.
type Func struct {
	fn       func(Document) (string, error)
	severity report.Status
	passed   bool
}

// NewFunc wraps fn with FAILURE severity.
func NewFunc(fn func(Document) (string, error)) *Func {
	return &Func{fn: fn, severity: report.StatusFailure}
}

func (f *Func) WithSeverity(s report.Status) *Func {
	f.severity = s
	return f
}

func (f *Func) Passed() bool { return f.passed }

func (f *Func) Verify(doc Document) error {
	f.passed = false
	msg, err := f.fn(doc)
	if err != nil {
		return err
	}
	if msg != "" {
		return &Result{Severity: f.severity, Message: msg}
	}
	f.passed = true
	return nil
}

// All runs verifiers in order and stops at the first failure.
type All []Verifier

func (a All) Verify(doc Document) error {
	for _, v := range a {
		if err := v.Verify(doc); err != nil {
			return err
		}
	}
	return nil
}

func (a All) Passed() bool {
	for _, v := range a {
		if !v.Passed() {
			return false
		}
	}
	return true
}
