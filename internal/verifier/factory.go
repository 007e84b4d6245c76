package verifier

import "github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"

// Factory builds verifiers over one selector path, e.g.
// Factory{Path: []string{"hei", "hei-id"}}.
type Factory struct {
	Path []string
}

// NewFactory is shorthand for Factory{Path: path}.
func NewFactory(path ...string) Factory {
	return Factory{Path: path}
}

func (f Factory) check(k kind, values []string) *Check {
	return &Check{
		path:     append([]string(nil), f.Path...),
		kind:     k,
		values:   append([]string(nil), values...),
		severity: report.StatusFailure,
	}
}

// ContainExactly passes when the selected values equal expected as a
// multiset.
func (f Factory) ContainExactly(expected ...string) *Check { return f.check(kindExactly, expected) }

// Contain passes when every expected value is selected.
func (f Factory) Contain(expected ...string) *Check { return f.check(kindContain, expected) }

// NotContain passes when none of values is selected.
func (f Factory) NotContain(values ...string) *Check { return f.check(kindNotContain, values) }

// BeEmpty passes when nothing is selected.
func (f Factory) BeEmpty() *Check { return f.check(kindEmpty, nil) }

// NotBeEmpty passes when something is selected.
func (f Factory) NotBeEmpty() *Check { return f.check(kindNotEmpty, nil) }

// BeCorrect always passes.
func (f Factory) BeCorrect() *Check { return f.check(kindCorrect, nil) }
