package fixture

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

// Parameter is one value a suite needs before it can run, such as a valid
// hei_id served by the target.
type Parameter struct {
	Name        string   `json:"name" yaml:"name"`
	DependsOn   []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	BlockedBy   []string `json:"blockedBy,omitempty" yaml:"blockedBy,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`

	// Strategy discovers candidate values. A nil strategy means the
	// parameter can only be provided by the user; unresolved it is left
	// unset.
	Strategy Strategy `json:"-" yaml:"-"`
	// Optional parameters may stay unresolved.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
	// Missing is reported when the strategy finds nothing.
	Missing string `json:"-" yaml:"-"`
	// Step names the setup step that resolves the parameter.
	Step string `json:"-" yaml:"-"`
}

// Strategy returns candidate values; the first one becomes the value.
type Strategy func(ctx context.Context, env Env, vals *Values) ([]string, error)

// Probe fetches a document from an API using the preferred security
// method of the run.
type Probe interface {
	Fetch(ctx context.Context, url string, params transport.Params) (verifier.Document, error)
}

// Env is what strategies may look at.
type Env struct {
	// URL is the endpoint under test.
	URL       string
	Catalogue catalogue.Lookup
	Probe     Probe
	// Manifest holds the params of the matched catalogue entry, such as
	// max-hei-ids.
	Manifest map[string]string
}

// Values are the parameter values of one run.
type Values struct {
	values       map[string]string
	candidates   map[string][]string
	userProvided map[string]bool
	order        []string
}

// NewValues returns an empty set.
func NewValues() *Values {
	return &Values{
		values:       map[string]string{},
		candidates:   map[string][]string{},
		userProvided: map[string]bool{},
	}
}

func (v *Values) set(name, value string, candidates []string, user bool) {
	if _, ok := v.values[name]; !ok {
		v.order = append(v.order, name)
	}
	v.values[name] = value
	v.candidates[name] = append([]string(nil), candidates...)
	v.userProvided[name] = user
}

// Get returns a resolved value.
func (v *Values) Get(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Value returns a resolved value or "".
func (v *Values) Value(name string) string {
	return v.values[name]
}

// Candidates lists every value found for name; the resolved value is the
// first unless narrowed.
func (v *Values) Candidates(name string) []string {
	return append([]string(nil), v.candidates[name]...)
}

// UserProvided reports whether name came from an override.
func (v *Values) UserProvided(name string) bool {
	return v.userProvided[name]
}

// Discover records values found outside of a strategy, such as in an API
// specific setup step. The first candidate becomes the value. User provided
// values are kept.
func (v *Values) Discover(name string, candidates ...string) {
	if len(candidates) == 0 || v.userProvided[name] {
		return
	}
	v.set(name, candidates[0], candidates, false)
}

// Narrow replaces the value of an earlier, discovered parameter with
// another of its candidates.
func (v *Values) Narrow(name, value string) error {
	if _, ok := v.values[name]; !ok {
		return fmt.Errorf("cannot narrow unresolved parameter %s", name)
	}
	if v.userProvided[name] {
		if v.values[name] == value {
			return nil
		}
		return fmt.Errorf("cannot narrow user provided parameter %s", name)
	}
	for _, c := range v.candidates[name] {
		if c == value {
			v.values[name] = value
			return nil
		}
	}
	return fmt.Errorf("%q is not a candidate of %s", value, name)
}

// Names lists resolved parameters in resolution order.
func (v *Values) Names() []string {
	return append([]string(nil), v.order...)
}

// Map copies the resolved values.
func (v *Values) Map() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// DefinitionError is a broken parameter table.
type DefinitionError struct {
	Parameter string
	Reason    string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid parameter definition %s: %s", e.Parameter, e.Reason)
}

// OverrideError is a rejected set of user-provided values.
type OverrideError struct {
	Parameter string
	Reason    string
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.Parameter, e.Reason)
}

// UnresolvedError means a required parameter could not be discovered.
type UnresolvedError struct {
	Parameter string
	Message   string
}

func (e *UnresolvedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Could not find a value for parameter %s. Provide it explicitly.", e.Parameter)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinQuoted(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	return strings.Join(q, ", ")
}
