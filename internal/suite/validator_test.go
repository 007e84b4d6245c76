package suite

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/githubtags"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/verifier"
)

func TestValidateWellBehavedTarget(t *testing.T) {
	h := newHarness(t)
	rep, err := h.validator(testAPI(nil)).Validate(context.Background(), h.request())
	require.NoError(t, err)

	assert.False(t, rep.Aborted, rep.AbortReason)
	assert.Equal(t, []string{
		StepCredentials,
		StepHTTPSScheme,
		StepRegistration,
		StepSecurity,
		"Resolving the hei_id parameter.",
	}, stepNames(rep)[:5])

	// No HTTP signatures: the security step only warns.
	assert.Equal(t, report.StatusWarning, findStep(t, rep, StepSecurity, "").Status)

	steps := mainSteps(rep)
	// GATTT runs the battery, PATTT adds the PUT and DELETE checks.
	require.Len(t, steps, 6)
	for _, s := range steps {
		assert.Equal(t, report.StatusSuccess, s.Status, "%s %s: %s", s.Combination, s.Name, s.Message)
		assert.NotEmpty(t, s.Requests, s.Name)
	}
	put := findStep(t, rep, "Trying Combination[PATTT] with a PUT request. Expecting to receive a valid HTTP 405 error response.", "PATTT")
	assert.Equal(t, report.StatusSuccess, put.Status)

	assert.Contains(t, h.target.requests(), "GET hei_id=uw.edu.pl&hei_id=uw.edu.pl")
	assert.Contains(t, h.target.requests(), "POST hei_id=uw.edu.pl&hei_id=uw.edu.pl")
}

func TestValidateExpectedErrorPath(t *testing.T) {
	tests := []struct {
		name    string
		dups    bool
		expect  Expectation
		status  report.Status
		message string
	}{
		{
			name:    "wrong status class",
			dups:    true,
			expect:  Error(http.StatusBadRequest),
			status:  report.StatusFailure,
			message: "HTTP 400 expected, but HTTP 200 received.",
		},
		{
			name:    "same status class",
			expect:  Error(http.StatusNotFound),
			status:  report.StatusWarning,
			message: "HTTP 404 expected, but HTTP 400 received.",
		},
		{
			name:    "same status class below warning",
			expect:  Error(http.StatusNotFound).WithSeverity(report.StatusNotice),
			status:  report.StatusNotice,
			message: "HTTP 404 expected, but HTTP 400 received.",
		},
		{
			name:    "any of two",
			dups:    true,
			expect:  Error(http.StatusBadRequest, http.StatusNotFound),
			status:  report.StatusFailure,
			message: "HTTP 400 or HTTP 404 expected, but HTTP 200 received.",
		},
		{
			name:   "expected status",
			expect: Error(http.StatusBadRequest),
			status: report.StatusSuccess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(tg *institutionsTarget) { tg.acceptDuplicates = tt.dups })
			api := testAPI(func(st *State) []Case {
				return []Case{{
					Name:   "duplicate",
					Params: transport.Repeat(2, transport.P("hei_id", st.Value("hei_id"))),
					Expect: tt.expect,
				}}
			})
			req := h.request()
			req.Security = "ATTT"
			rep, err := h.validator(api).Validate(context.Background(), req)
			require.NoError(t, err)

			s := findStep(t, rep, "duplicate", "GATTT")
			assert.Equal(t, tt.status, s.Status)
			if tt.message != "" {
				assert.Equal(t, tt.message, s.Message)
			}
		})
	}
}

func TestValidateSeverityIsCapped(t *testing.T) {
	h := newHarness(t)
	api := testAPI(func(st *State) []Case {
		return []Case{{
			Name:   "wrong ids",
			Params: transport.Params{transport.P("hei_id", st.Value("hei_id"))},
			Expect: OK(heiIDs.ContainExactly("other.example")).WithSeverity(report.StatusWarning),
		}}
	})
	rep, err := h.validator(api).Validate(context.Background(), h.request())
	require.NoError(t, err)

	s := findStep(t, rep, "wrong ids", "GATTT")
	assert.Equal(t, report.StatusWarning, s.Status)
	assert.Contains(t, s.Message, "doesn't match what we expect")
}

func TestValidateSetupAborts(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *harness, req *Request)
		last    string
		message string
	}{
		{
			name:    "plain http",
			mutate:  func(_ *harness, req *Request) { req.URL = "http://example.org/institutions" },
			last:    StepHTTPSScheme,
			message: "It needs to be HTTPS.",
		},
		{
			name:   "not registered",
			mutate: func(h *harness, _ *Request) { h.lookup.entries = nil },
			last:   StepRegistration,
		},
		{
			name:    "no covered institution",
			mutate:  func(h *harness, _ *Request) { h.lookup.covered = nil },
			last:    "Resolving the hei_id parameter.",
			message: "No covered HEIs.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := h.request()
			tt.mutate(h, &req)
			rep, err := h.validator(testAPI(nil)).Validate(context.Background(), req)
			require.NoError(t, err)

			require.True(t, rep.Aborted)
			last := rep.Steps[len(rep.Steps)-1]
			assert.Equal(t, tt.last, last.Name)
			assert.True(t, last.Status.AtLeast(report.StatusFailure), last.Status)
			if tt.message != "" {
				assert.Equal(t, tt.message, last.Message)
			}
			assert.Empty(t, mainSteps(rep))
		})
	}
}

func TestValidateSecurityFilter(t *testing.T) {
	h := newHarness(t)
	v := h.validator(testAPI(nil))

	req := h.request()
	req.Security = "HTTT"
	rep, err := v.Validate(context.Background(), req)
	require.NoError(t, err)
	last := rep.Steps[len(rep.Steps)-1]
	assert.Equal(t, StepSecurityFilter, last.Name)
	assert.Equal(t, report.StatusError, last.Status)
	assert.Equal(t, "Security HTTT is not supported by this endpoint", last.Message)
	assert.Equal(t, "HTTT", rep.Security)

	req.Security = "ATTT"
	rep, err = v.Validate(context.Background(), req)
	require.NoError(t, err)
	for _, s := range mainSteps(rep) {
		assert.Contains(t, []string{"GATTT", "PATTT"}, s.Combination)
	}
}

func TestValidateCaseFlow(t *testing.T) {
	h := newHarness(t)
	var captured []string
	api := testAPI(func(st *State) []Case {
		var name string
		return []Case{
			{
				Name:      "as other participant",
				Secondary: true,
			},
			{
				Name:   "capture",
				Params: transport.Params{transport.P("hei_id", st.Value("hei_id"))},
				Expect: OK(nil),
				Capture: func(doc verifier.Document) error {
					found, err := doc.Select("hei", "name")
					if len(found) > 0 {
						name = found[0]
					}
					return err
				},
				Then: func() []Case {
					captured = append(captured, name)
					return []Case{{Name: "follow-up " + name, Check: func(context.Context, *State) error { return nil }}}
				},
			},
			{
				Name:     "critical",
				Critical: true,
				Check: func(context.Context, *State) error {
					return engine.Fail(report.StatusFailure, "stop here")
				},
			},
			{Name: "never reached"},
		}
	})
	req := h.request()
	req.Security = "ATTT"
	rep, err := h.validator(api).Validate(context.Background(), req)
	require.NoError(t, err)

	secondary := findStep(t, rep, "as other participant", "")
	assert.True(t, secondary.Skipped)
	assert.Equal(t, secondaryMissing, secondary.SkipReason)

	findStep(t, rep, "follow-up University of Warsaw", "")
	assert.Equal(t, []string{"University of Warsaw"}, captured)

	assert.True(t, rep.Aborted)
	assert.Equal(t, "stop here", rep.AbortReason)
	assert.NotContains(t, stepNames(rep), "never reached")
}

func TestValidateCallbackPanics(t *testing.T) {
	known := func(st *State) Case {
		return Case{
			Name:   "known",
			Params: transport.Params{transport.P("hei_id", st.Value("hei_id"))},
			Expect: OK(nil),
		}
	}
	after := Case{Name: "after", Check: func(context.Context, *State) error { return nil }}

	tests := []struct {
		name      string
		configure func(api *API)
		wantStep  string
		wantAbort bool
		wantAfter bool
	}{
		{
			name: "battery",
			configure: func(api *API) {
				api.Battery = func(*State) []Case { panic("battery is broken") }
			},
			wantStep:  StepBattery,
			wantAbort: true,
		},
		{
			name: "api setup",
			configure: func(api *API) {
				api.Setup = func(SetupEnv) []engine.Step { panic("setup is broken") }
			},
			wantStep:  StepAPISetup,
			wantAbort: true,
		},
		{
			name: "then",
			configure: func(api *API) {
				api.Battery = func(st *State) []Case {
					tc := known(st)
					tc.Then = func() []Case { panic("then is broken") }
					return []Case{tc, after}
				}
			},
			wantStep:  `Preparing the follow-up cases of "known".`,
			wantAfter: true,
		},
		{
			name: "then of critical case",
			configure: func(api *API) {
				api.Battery = func(st *State) []Case {
					tc := known(st)
					tc.Critical = true
					tc.Then = func() []Case { panic("then is broken") }
					return []Case{tc, after}
				}
			},
			wantStep:  `Preparing the follow-up cases of "known".`,
			wantAbort: true,
		},
		{
			name: "capture",
			configure: func(api *API) {
				api.Battery = func(st *State) []Case {
					tc := known(st)
					tc.Capture = func(verifier.Document) error { panic("capture is broken") }
					return []Case{tc, after}
				}
			},
			wantStep:  `Reading values from the response to "known".`,
			wantAfter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			api := testAPI(nil)
			tt.configure(&api)
			req := h.request()
			req.Security = "ATTT"

			var rep report.Report
			var err error
			require.NotPanics(t, func() {
				rep, err = h.validator(api).Validate(context.Background(), req)
			})
			require.NoError(t, err)

			s := findStep(t, rep, tt.wantStep, "")
			assert.Equal(t, report.StatusError, s.Status)
			assert.Contains(t, s.Message, "Other error occurred. Please contact the developers.")
			assert.NotEmpty(t, s.Trace)
			assert.Equal(t, tt.wantAbort, rep.Aborted)
			assert.Equal(t, tt.wantAfter, slices.Contains(stepNames(rep), "after"))
		})
	}
}

func TestValidateRequires(t *testing.T) {
	tests := []struct {
		name       string
		first      Case
		reason     string
		wantReason string
		wantSkip   bool
	}{
		{
			name:  "prerequisite passed",
			first: Case{Name: "first", Check: func(context.Context, *State) error { return nil }},
		},
		{
			name:       "prerequisite failed",
			first:      Case{Name: "first", Check: func(context.Context, *State) error { return engine.Fail(report.StatusFailure, "no") }},
			wantSkip:   true,
			wantReason: `"first" did not pass.`,
		},
		{
			name:       "prerequisite noticed",
			first:      Case{Name: "first", Check: func(context.Context, *State) error { return engine.Fail(report.StatusNotice, "empty") }},
			reason:     "The list was empty.",
			wantSkip:   true,
			wantReason: "The list was empty.",
		},
		{
			name:       "prerequisite skipped",
			first:      Case{Name: "first", Skip: true, SkipReason: "not today"},
			wantSkip:   true,
			wantReason: `"first" did not pass.`,
		},
		{
			name:       "prerequisite missing",
			first:      Case{Name: "other", Check: func(context.Context, *State) error { return nil }},
			wantSkip:   true,
			wantReason: `"first" did not pass.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			api := testAPI(func(*State) []Case {
				return []Case{tt.first, {
					Name:           "second",
					Requires:       "first",
					RequiresReason: tt.reason,
					Check:          func(context.Context, *State) error { return nil },
				}}
			})
			req := h.request()
			req.Security = "ATTT"
			rep, err := h.validator(api).Validate(context.Background(), req)
			require.NoError(t, err)

			s := findStep(t, rep, "second", "GATTT")
			assert.Equal(t, tt.wantSkip, s.Skipped)
			assert.Equal(t, tt.wantReason, s.SkipReason)
			assert.Equal(t, report.StatusSuccess, s.Status)
		})
	}
}

func TestValidateDeterministic(t *testing.T) {
	type outcome struct {
		Name        string
		Combination string
		Status      report.Status
		Message     string
		Skipped     bool
		SkipReason  string
	}
	outcomes := func(rep report.Report) []outcome {
		out := make([]outcome, len(rep.Steps))
		for i, s := range rep.Steps {
			out[i] = outcome{s.Name, s.Combination, s.Status, s.Message, s.Skipped, s.SkipReason}
		}
		return out
	}

	h := newHarness(t)
	v := h.validator(testAPI(nil))
	first, err := v.Validate(context.Background(), h.request())
	require.NoError(t, err)
	second, err := v.Validate(context.Background(), h.request())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEmpty(t, outcomes(first))
	assert.Equal(t, outcomes(first), outcomes(second))
}

func TestValidateVersionStep(t *testing.T) {
	h := newHarness(t)
	tags := githubtags.Static{"institutions": {
		semver.MustParse("2.1.0"),
		semver.MustParse("2.2.0"),
		semver.MustParse("3.0.0-rc1"),
	}}
	rep, err := h.validator(testAPI(nil), WithTags(tags)).Validate(context.Background(), h.request())
	require.NoError(t, err)

	s := findStep(t, rep, StepVersion, "")
	assert.Equal(t, report.StatusNotice, s.Status)
	assert.Contains(t, s.Message, "2.2.0")

	req := h.request()
	req.Version = "2.0.7"
	h.lookup.entries[0].Version = "2.0.7"
	rep, err = h.validator(testAPI(nil), WithTags(tags)).Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailure, findStep(t, rep, StepVersion, "").Status)
	assert.False(t, rep.Aborted)
}

func TestValidateFreshCredentials(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	creds := &transport.Credentials{PublishedAt: now.Add(-time.Minute)}
	rep, err := h.validator(testAPI(nil), WithCredentials(creds)).Validate(context.Background(), h.request())
	require.NoError(t, err)

	s := findStep(t, rep, StepCredentials, "")
	assert.Equal(t, report.StatusNotice, s.Status)
	assert.Contains(t, s.Message, "10 minutes old")
}

func TestValidateSkipsWithoutKeys(t *testing.T) {
	h := newHarness(t)
	h.lookup = registered(h.srv.URL, security.ManifestSecurity{
		ClientAuth:         []string{"none", "httpsig"},
		ServerAuth:         []string{"tlscert"},
		RequestEncryption:  []string{"tls"},
		ResponseEncryption: []string{"tls"},
	})
	rep, err := h.validator(testAPI(nil)).Validate(context.Background(), h.request())
	require.NoError(t, err)
	assert.False(t, rep.Aborted, rep.AbortReason)

	const reason = "No keys configured for Client Authentication with HTTP Signature."
	var signed int
	for _, s := range mainSteps(rep) {
		require.Len(t, s.Combination, 5, s.Name)
		if s.Combination[1] != 'H' {
			assert.False(t, s.Skipped, "%s %s", s.Combination, s.Name)
			continue
		}
		signed++
		assert.True(t, s.Skipped, "%s %s", s.Combination, s.Name)
		assert.Equal(t, reason, s.SkipReason)
		assert.Empty(t, s.Requests)
	}
	assert.NotZero(t, signed)
}

func TestValidateCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	observer := engine.ObserverFunc(func(s report.Step) {
		if s.Phase == report.PhaseMain {
			cancel()
		}
	})
	rep, err := h.validator(testAPI(nil), WithObserver(observer)).Validate(ctx, h.request())
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrCancelled))
	assert.True(t, rep.Cancelled)
	assert.Len(t, mainSteps(rep), 1)
}

func TestValidateConfigurationErrors(t *testing.T) {
	h := newHarness(t)
	v := h.validator(testAPI(nil))
	tests := []struct {
		name  string
		req   func() Request
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown api",
			req: func() Request {
				r := h.request()
				r.API = "courses"
				return r
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnknownAPI) },
		},
		{
			name: "unsupported version",
			req: func() Request {
				r := h.request()
				r.Version = "1.0.0"
				return r
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnsupportedVersion) },
		},
		{
			name: "malformed version",
			req: func() Request {
				r := h.request()
				r.Version = "two"
				return r
			},
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "invalid version") },
		},
		{
			name: "malformed security",
			req: func() Request {
				r := h.request()
				r.Security = "XXXX"
				return r
			},
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "invalid security filter") },
		},
		{
			name: "unknown override",
			req: func() Request {
				r := h.request()
				r.Parameters = map[string]string{"ounit_id": "x"}
				return r
			},
			check: func(t *testing.T, err error) {
				var oe *fixture.OverrideError
				assert.True(t, errors.As(err, &oe))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := v.Validate(context.Background(), tt.req())
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, rep.Steps)
		})
	}
	assert.Empty(t, h.target.requests())
}

func TestValidateOverride(t *testing.T) {
	h := newHarness(t)
	h.lookup.covered = nil
	req := h.request()
	req.Parameters = map[string]string{"hei_id": knownHEI}
	rep, err := h.validator(testAPI(nil)).Validate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, rep.Aborted, rep.AbortReason)
	assert.Len(t, mainSteps(rep), 6)
}

func TestValidateAllKeepsOrder(t *testing.T) {
	h := newHarness(t)
	v := h.validator(testAPI(nil))
	bad := h.request()
	bad.API = "courses"
	reqs := []Request{h.request(), bad, h.request()}

	results, err := v.ValidateAll(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, reqs[i], r.Request)
	}
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrUnknownAPI)
	assert.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Report.ID, results[2].Report.ID)
}

func TestListParameters(t *testing.T) {
	v := NewValidator(NewRegistry(testAPI(nil)))
	params, err := v.ListParameters("institutions", "", "2.0.0")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "hei_id", params[0].Name)

	_, err = v.ListParameters("institutions", "", "1.0.0")
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
