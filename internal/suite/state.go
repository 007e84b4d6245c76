package suite

import (
	"fmt"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
)

// State is owned by a single run. Setup fills it; Freeze makes it read-only
// for the main phase.
type State struct {
	url      string
	api      string
	endpoint string
	version  semver.Version
	started  time.Time

	entry        catalogue.Entry
	hasEntry     bool
	values       *fixture.Values
	limits       map[string]int
	flags        map[string]bool
	methods      security.Methods
	preferred    security.Descriptor
	hasPreferred bool
	combinations []security.Combination
	broken       bool

	frozen bool
}

func newState(url, api, endpoint string, version semver.Version) *State {
	return &State{
		url:      url,
		api:      api,
		endpoint: endpoint,
		version:  version,
		values:   fixture.NewValues(),
		limits:   map[string]int{},
		flags:    map[string]bool{},
	}
}

// NewState creates an empty state. Runs create their own; batteries under
// test may use this one.
func NewState(url, api, endpoint string, version semver.Version) *State {
	return newState(url, api, endpoint, version)
}

func (s *State) mutate(op string) {
	if s.frozen {
		panic(fmt.Sprintf("suite state is frozen: %s called after setup", op))
	}
}

// Freeze ends the setup phase. Every setter panics afterwards.
func (s *State) Freeze() { s.frozen = true }

func (s *State) Frozen() bool { return s.frozen }

func (s *State) URL() string               { return s.url }
func (s *State) API() string               { return s.api }
func (s *State) Endpoint() string          { return s.endpoint }
func (s *State) Version() semver.Version   { return s.version }
func (s *State) Values() *fixture.Values   { return s.values }
func (s *State) Methods() security.Methods { return s.methods }
func (s *State) Broken() bool              { return s.broken }

// Started is when the run began. Batteries derive relative dates from it.
func (s *State) Started() time.Time {
	if s.started.IsZero() {
		return time.Now()
	}
	return s.started
}

// Entry returns the catalogue entry the URL is registered under.
func (s *State) Entry() (catalogue.Entry, bool) { return s.entry, s.hasEntry }

// Value returns a resolved parameter or "".
func (s *State) Value(name string) string { return s.values.Value(name) }

// Candidates lists every value discovered for a parameter.
func (s *State) Candidates(name string) []string { return s.values.Candidates(name) }

// Limit returns a max-* manifest limit. Unset limits are 1.
func (s *State) Limit(name string) int {
	if n, ok := s.limits[name]; ok {
		return n
	}
	return 1
}

func (s *State) Flag(name string) bool { return s.flags[name] }

// Preferred is the descriptor used for discovery requests.
func (s *State) Preferred() (security.Descriptor, bool) { return s.preferred, s.hasPreferred }

// Combinations returns a copy of the combinations to test.
func (s *State) Combinations() []security.Combination {
	return append([]security.Combination(nil), s.combinations...)
}

func (s *State) setStarted(t time.Time) {
	s.mutate("setStarted")
	s.started = t
}

func (s *State) SetEntry(e catalogue.Entry) {
	s.mutate("SetEntry")
	s.entry = e
	s.hasEntry = true
}

// Discover stores values found by an API specific setup step.
func (s *State) Discover(name string, candidates ...string) {
	s.mutate("Discover")
	s.values.Discover(name, candidates...)
}

func (s *State) SetLimit(name string, n int) {
	s.mutate("SetLimit")
	s.limits[name] = n
}

func (s *State) SetFlag(name string, v bool) {
	s.mutate("SetFlag")
	s.flags[name] = v
}

// SetMethods stores the testable methods and derives the preferred
// descriptor from them.
func (s *State) SetMethods(m security.Methods) {
	s.mutate("SetMethods")
	s.methods = m
	s.preferred, s.hasPreferred = security.Preferred(m)
}

func (s *State) SetCombinations(cs []security.Combination) {
	s.mutate("SetCombinations")
	s.combinations = append([]security.Combination(nil), cs...)
}

// MarkBroken records that setup did not complete.
func (s *State) MarkBroken() {
	s.mutate("MarkBroken")
	s.broken = true
}
