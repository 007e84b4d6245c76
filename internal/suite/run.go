package suite

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Main phase step names.
const (
	// StepSecurityFilter reports a security filter no combination matches.
	StepSecurityFilter = "Checking the requested security method."
	// StepBattery reports a battery that could not be built.
	StepBattery = "Preparing the test cases."
)

// run is one validation of one URL. It is used by a single goroutine.
type run struct {
	v      *Validator
	api    API
	st     *State
	runner *engine.Runner
	lookup catalogue.Lookup
	plan   *fixture.Plan
	filter *security.Descriptor
	probe  *probe
	x      *exchanger

	// outcomes holds the cases of the current combination by name.
	outcomes map[string]outcome
}

type outcome struct {
	status report.Status
	ran    bool
}

func newRun(v *Validator, api API, st *State, runner *engine.Runner, lookup catalogue.Lookup, plan *fixture.Plan, filter *security.Descriptor) *run {
	x := &exchanger{
		client: v.client,
		lookup: lookup,
		creds:  v.creds,
		codec:  v.codec,
		now:    v.now,
		root:   api.ResponseRoot,
		apiURL: st.URL(),
	}
	return &run{
		v:      v,
		api:    api,
		st:     st,
		runner: runner,
		lookup: lookup,
		plan:   plan,
		filter: filter,
		probe:  &probe{st: st, x: x, lookup: lookup},
		x:      x,
	}
}

// useEntry points the exchanger at the keys of the registered entry.
func (r *run) useEntry() {
	entry, ok := r.st.Entry()
	if !ok {
		return
	}
	r.x.recipient = recipientKey(r.lookup, entry)
}

// execute runs both phases. Aborts are recorded in the report and are not
// returned; only cancellation is.
func (r *run) execute(ctx context.Context) error {
	if err := r.setup(ctx); err != nil {
		r.st.MarkBroken()
		if engine.IsAbort(err) {
			return nil
		}
		return err
	}
	err := r.main(ctx)
	if engine.IsAbort(err) {
		return nil
	}
	return err
}

func (r *run) main(ctx context.Context) error {
	r.st.Freeze()
	r.runner.SetPhase(report.PhaseMain)

	combinations := r.st.Combinations()
	if r.filter != nil {
		combinations = filterCombinations(combinations, *r.filter)
		if len(combinations) == 0 {
			filter := *r.filter
			_, err := r.runner.Do(ctx, engine.Step{
				Name: StepSecurityFilter,
				Run: func(context.Context, *engine.StepContext) error {
					return engine.Fail(report.StatusError, "Security %s is not supported by this endpoint", filter)
				},
			})
			return err
		}
	}

	logging.Debug("Suite", "Running %d combinations of %s against %s", len(combinations), r.api.Key(), r.st.URL())
	for _, c := range combinations {
		if err := r.combination(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// filterCombinations keeps the combinations secured exactly with d.
// Untestable combinations are kept so the reason is still reported.
func filterCombinations(cs []security.Combination, d security.Descriptor) []security.Combination {
	var out []security.Combination
	for _, c := range cs {
		if c.Untestable || c.Security == d {
			out = append(out, c)
		}
	}
	return out
}

func (r *run) combination(ctx context.Context, c security.Combination) error {
	if c.Untestable {
		_, err := r.runner.Do(ctx, engine.Step{
			Name: fmt.Sprintf("Trying %s.", c),
			Run: func(context.Context, *engine.StepContext) error {
				return engine.FailMsg(report.StatusFailure, c.Reason)
			},
		})
		return err
	}

	if c.Method == http.MethodPost {
		for _, m := range []string{http.MethodPut, http.MethodDelete} {
			if _, err := r.runner.Do(ctx, r.methodStep(c, m)); err != nil {
				return err
			}
		}
	}

	if r.api.Battery == nil {
		return nil
	}
	r.outcomes = make(map[string]outcome)
	var cases []Case
	ok, err := r.guarded(ctx, StepBattery, c.Code(), report.StatusError, func() {
		cases = r.api.Battery(r.st)
	})
	if !ok {
		return err
	}
	return r.cases(ctx, c, cases)
}

// guarded calls fn, a callback supplied by the API. A panic is recorded as
// an ERROR step called name, escalated by abortAt, and ok is false.
func (r *run) guarded(ctx context.Context, name, combination string, abortAt report.Status, fn func()) (ok bool, err error) {
	perr := engine.Contain(fn)
	if perr == nil {
		return true, nil
	}
	_, err = r.runner.Do(ctx, engine.Step{
		Name:        name,
		Combination: combination,
		AbortAt:     abortAt,
		Run: func(context.Context, *engine.StepContext) error {
			return perr
		},
	})
	return false, err
}

// methodStep sends c with an HTTP method the API does not allow.
func (r *run) methodStep(c security.Combination, method string) engine.Step {
	return engine.Step{
		Name: fmt.Sprintf("Trying %s with a %s request. Expecting to receive a valid HTTP 405 error response.",
			c, method),
		Combination: c.Code(),
		Skip: func() (bool, string) {
			if skip, reason := r.credentialsMissing(c, false); skip {
				return skip, reason
			}
			return r.codecMissing(c)
		},
		Run: func(ctx context.Context, sc *engine.StepContext) error {
			wrong := c.WithMethod(method)
			req, err := r.x.prepare(sc, wrong, nil, false)
			if err != nil {
				return engine.FailMsg(report.StatusError, err.Error())
			}
			resp, err := r.x.send(ctx, sc, req)
			if err != nil {
				return err
			}
			return r.x.expectError(sc, wrong, req, resp, Error(http.StatusMethodNotAllowed))
		},
	}
}

func (r *run) cases(ctx context.Context, c security.Combination, cases []Case) error {
	for _, tc := range cases {
		if err := r.runCase(ctx, c, tc); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) runCase(ctx context.Context, c security.Combination, tc Case) error {
	var doc verifier.Document
	ran := false
	step := engine.Step{
		Name:        tc.Name,
		Combination: c.Code(),
		Skip: func() (bool, string) {
			return r.skip(c, tc)
		},
		Run: func(ctx context.Context, sc *engine.StepContext) error {
			ran = true
			if tc.Check != nil {
				return tc.Check(ctx, r.st)
			}
			d, err := r.exchange(ctx, sc, c, tc)
			doc = d
			return err
		},
	}
	if tc.Critical {
		step.AbortAt = report.StatusFailure
	}

	status, err := r.runner.Do(ctx, step)
	if r.outcomes != nil {
		r.outcomes[tc.Name] = outcome{status: status, ran: ran}
	}
	if err != nil {
		return err
	}
	if doc != nil && tc.Capture != nil {
		var cerr error
		ok, err := r.guarded(ctx, fmt.Sprintf("Reading values from the response to %q.", tc.Name), c.Code(), step.AbortAt, func() {
			cerr = tc.Capture(doc)
		})
		if !ok {
			return err
		}
		if cerr != nil {
			logging.Warn("Suite", "Cannot capture values of %q: %v", tc.Name, cerr)
		}
	}
	if tc.Then != nil {
		var next []Case
		ok, err := r.guarded(ctx, fmt.Sprintf("Preparing the follow-up cases of %q.", tc.Name), c.Code(), step.AbortAt, func() {
			next = tc.Then()
		})
		if !ok {
			return err
		}
		return r.cases(ctx, c, next)
	}
	return nil
}

func (r *run) skip(c security.Combination, tc Case) (bool, string) {
	if tc.Skip {
		return true, tc.SkipReason
	}
	if tc.Secondary && (r.v.creds == nil || r.v.creds.Secondary == nil) {
		return true, secondaryMissing
	}
	if tc.Requires != "" {
		if o, ok := r.outcomes[tc.Requires]; !ok || !o.ran || o.status != report.StatusSuccess {
			if tc.RequiresReason != "" {
				return true, tc.RequiresReason
			}
			return true, fmt.Sprintf("%q did not pass.", tc.Requires)
		}
	}
	if tc.Check == nil {
		if skip, reason := r.credentialsMissing(c, tc.Secondary); skip {
			return skip, reason
		}
		return r.codecMissing(c)
	}
	return false, ""
}

func (r *run) credentialsMissing(c security.Combination, secondary bool) (bool, string) {
	if r.v.creds.Usable(c.Security.ClientAuth, secondary) {
		return false, ""
	}
	return true, fmt.Sprintf("No keys configured for %s.", c.Security.ClientAuth)
}

func (r *run) codecMissing(c security.Combination) (bool, string) {
	if r.x.codec != nil {
		return false, ""
	}
	if c.Security.RequestEncryption == security.RequestEWP || c.Security.ResponseEncryption == security.ResponseEWP {
		return true, transport.CodecMissingReason
	}
	return false, ""
}

// exchange sends the request of tc and checks the response.
func (r *run) exchange(ctx context.Context, sc *engine.StepContext, c security.Combination, tc Case) (verifier.Document, error) {
	req, err := r.x.prepare(sc, c, tc.Params, tc.Secondary)
	if err != nil {
		return nil, engine.FailMsg(report.StatusError, err.Error())
	}
	resp, err := r.x.send(ctx, sc, req)
	if err != nil {
		return nil, err
	}
	if tc.Expect.IsError() {
		return nil, r.x.expectError(sc, c, req, resp, tc.Expect)
	}
	return r.x.expectOK(sc, c, req, resp, tc.Expect)
}
