package suite

import (
	"context"
	"net/http"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

// FakeID is an identifier no implementation is expected to know.
const FakeID = "this-is-some-unknown-and-unexpected-id-its-very-long-but-sill-technically-correct"

// UnknownPolicy tells how an API treats parameters it does not define.
type UnknownPolicy int

const (
	// RejectUnknown APIs answer 400 to unknown parameters.
	RejectUnknown UnknownPolicy = iota
	// IgnoreUnknown APIs skip unknown parameters and answer normally.
	IgnoreUnknown
)

func (p UnknownPolicy) String() string {
	if p == IgnoreUnknown {
		return "ignore"
	}
	return "reject"
}

// API describes how one API endpoint is validated.
type API struct {
	Name     string
	Endpoint string
	// MinMajor and MaxMajor bound the supported major versions. Zero means
	// unbounded.
	MinMajor int
	MaxMajor int

	Parameters []fixture.Parameter
	// Limits are manifest parameters copied into the state, such as
	// max-hei-ids.
	Limits []string
	// HTTPMethods defaults to GET and POST.
	HTTPMethods      []string
	AnonymousAllowed bool
	Unknown          UnknownPolicy
	// ResponseRoot is the root element name every 200 response must have.
	ResponseRoot string

	// Setup returns extra setup steps run after parameter resolution.
	Setup func(env SetupEnv) []engine.Step
	// Battery returns the cases run for every combination.
	Battery func(st *State) []Case
}

// SetupEnv is what API specific setup steps may use.
type SetupEnv struct {
	State     *State
	Probe     fixture.Probe
	Catalogue catalogue.Lookup
}

// Supports reports whether v falls into the API's major version range.
func (a API) Supports(v semver.Version) bool {
	if a.MinMajor > 0 && v.Major < a.MinMajor {
		return false
	}
	if a.MaxMajor > 0 && v.Major > a.MaxMajor {
		return false
	}
	return true
}

func (a API) methods() []string {
	if len(a.HTTPMethods) == 0 {
		return []string{http.MethodGet, http.MethodPost}
	}
	return a.HTTPMethods
}

// Key identifies the API and endpoint, e.g. "iias/index".
func (a API) Key() string {
	if a.Endpoint == "" {
		return a.Name
	}
	return a.Name + "/" + a.Endpoint
}

// Case is one check run under every combination.
type Case struct {
	Name   string
	Params transport.Params
	Expect Expectation

	Skip       bool
	SkipReason string
	// Critical cases abort the suite when they fail.
	Critical bool
	// Secondary cases are sent with the other participant's credentials.
	Secondary bool
	// Requires names an earlier case of the same combination. The case is
	// skipped with RequiresReason unless that case ran and succeeded.
	Requires       string
	RequiresReason string

	// Check replaces the HTTP exchange with custom logic.
	Check func(ctx context.Context, st *State) error
	// Capture receives the decoded body of a passed case.
	Capture func(doc verifier.Document) error
	// Then returns cases to run right after this one.
	Then func() []Case
}

// Expectation is the outcome a case expects.
type Expectation struct {
	codes    []int
	verifier verifier.Verifier
	severity report.Status
}

// OK expects HTTP 200 and a body accepted by v. A nil v accepts any body.
func OK(v verifier.Verifier) Expectation {
	return Expectation{verifier: v, severity: report.StatusFailure}
}

// Error expects one of the given HTTP error statuses.
func Error(codes ...int) Expectation {
	return Expectation{codes: codes, severity: report.StatusFailure}
}

// WithSeverity caps the status of an unmet expectation.
func (e Expectation) WithSeverity(s report.Status) Expectation {
	e.severity = s
	return e
}

// IsError reports whether an error status is expected.
func (e Expectation) IsError() bool { return len(e.codes) > 0 }

func (e Expectation) Codes() []int { return append([]int(nil), e.codes...) }

// Verifier returns the body check of an OK expectation, or nil.
func (e Expectation) Verifier() verifier.Verifier { return e.verifier }

// UnknownParameter returns the unknown parameter cases. A request carrying
// only name must fail as if the required parameters were missing. A request
// carrying base plus name is answered by the policy: 400 for RejectUnknown,
// a normal response checked by v for IgnoreUnknown.
func UnknownParameter(policy UnknownPolicy, base transport.Params, name, value string, v verifier.Verifier) []Case {
	single := Case{
		Name:   "Request with single incorrect parameter, expect 400.",
		Params: transport.Params{transport.P(name, value)},
		Expect: Error(http.StatusBadRequest),
	}
	additional := Case{
		Name:   "Request with additional parameter, expect 400.",
		Params: base.With(transport.P(name, value)),
		Expect: Error(http.StatusBadRequest),
	}
	if policy == IgnoreUnknown {
		additional.Name = "Request with additional parameter, expect 200."
		additional.Expect = OK(v)
	}
	return []Case{single, additional}
}
