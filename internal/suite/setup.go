package suite

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/githubtags"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Setup step names.
const (
	StepCredentials  = "Check if our client credentials have been served long enough."
	StepHTTPSScheme  = "Verifying the format of the URL. Expecting a valid HTTPS-scheme URL."
	StepRegistration = "Verifying if the URL is properly registered."
	StepSecurity     = "Querying for supported security methods. Validating http-security integrity."
	StepVersion      = "Verifying API version."
	StepAPISetup     = "Preparing the API specific setup steps."
)

// setup runs the setup phase. A non-nil error means the run must stop.
func (r *run) setup(ctx context.Context) error {
	steps := []engine.Step{
		r.credentialsStep(),
		r.httpsStep(),
		r.registrationStep(),
		r.securityStep(),
	}
	if err := r.runner.Run(ctx, steps); err != nil {
		return err
	}

	if step, ok := r.versionStep(ctx); ok {
		if _, err := r.runner.Do(ctx, step); err != nil {
			return err
		}
	}

	for _, p := range r.plan.Order {
		if _, err := r.runner.Do(ctx, r.parameterStep(p)); err != nil {
			return err
		}
	}

	if r.api.Setup != nil {
		var extra []engine.Step
		ok, err := r.guarded(ctx, StepAPISetup, "", report.StatusError, func() {
			extra = r.api.Setup(SetupEnv{State: r.st, Probe: r.probe, Catalogue: r.lookup})
		})
		if !ok {
			return err
		}
		if err := r.runner.Run(ctx, extra); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) credentialsStep() engine.Step {
	return engine.Step{
		Name: StepCredentials,
		Run: func(context.Context, *engine.StepContext) error {
			if fresh, _ := r.v.creds.Fresh(r.runner.Now()); fresh {
				return engine.Fail(report.StatusNotice, "Our client credentials are quite fresh. This means that many APIs will "+
					"(correctly) return error responses in places where we expect HTTP 200. "+
					"This notice will disappear once our credentials are %d minutes old.",
					int(transport.FreshCredentialsAge.Minutes()))
			}
			return nil
		},
	}
}

func (r *run) httpsStep() engine.Step {
	return engine.Step{
		Name:    StepHTTPSScheme,
		AbortAt: report.StatusFailure,
		Run: func(context.Context, *engine.StepContext) error {
			target := r.st.URL()
			if !strings.HasPrefix(target, "https://") {
				return engine.Fail(report.StatusFailure, "It needs to be HTTPS.")
			}
			if u, err := url.Parse(target); err != nil || u.Host == "" {
				if err == nil {
					err = errors.New("missing host")
				}
				return engine.Fail(report.StatusFailure, "Exception while parsing URL format: %v", err)
			}
			return nil
		},
	}
}

func (r *run) registrationStep() engine.Step {
	return engine.Step{
		Name:    StepRegistration,
		AbortAt: report.StatusFailure,
		Run: func(context.Context, *engine.StepContext) error {
			entries := r.lookup.FindEntries(r.api.Name, r.st.Version().String(), r.api.Endpoint, r.st.URL())
			switch {
			case len(entries) == 0:
				return engine.Fail(report.StatusFailure, "Could not find this URL and version in the Registry Catalogue. "+
					"Make sure that it is properly registered (as declared in API's `manifest-entry.xsd` file): %s", r.st.URL())
			case len(entries) > 1:
				return engine.Fail(report.StatusFailure, "Multiple (%d) API entries found for this URL and version.", len(entries))
			}
			entry := entries[0]
			r.st.SetEntry(entry)
			for _, name := range r.api.Limits {
				r.st.SetLimit(name, fixture.Limit(entry.Params, name))
			}
			r.useEntry()
			return nil
		},
	}
}

func (r *run) securityStep() engine.Step {
	return engine.Step{
		Name: StepSecurity,
		Run: func(context.Context, *engine.StepContext) error {
			entry, _ := r.st.Entry()
			settings := security.ParseSettings(entry.Security)
			methods, findings := security.CollectMethods(settings, security.CollectOptions{
				AnonymousAllowed:    r.api.AnonymousAllowed,
				CASignedCertificate: r.v.creds.HasCASigned(),
			})
			r.st.SetMethods(methods)
			r.st.SetCombinations(security.Generate(security.Capabilities{
				Endpoint:    r.st.URL(),
				HTTPMethods: r.api.methods(),
				Security:    methods,
			}))
			return findingsFailure(findings)
		},
	}
}

// findingsFailure maps findings to the step outcome: any error makes the
// step ERROR, otherwise warnings make it WARNING and notices NOTICE.
func findingsFailure(f security.Findings) error {
	var status report.Status
	switch {
	case len(f.Errors) > 0:
		status = report.StatusError
	case len(f.Warnings) > 0:
		status = report.StatusWarning
	case len(f.Notices) > 0:
		status = report.StatusNotice
	default:
		return nil
	}
	return engine.FailMsg(status, f.Summary())
}

// versionStep is only added when the published tags are known.
func (r *run) versionStep(ctx context.Context) (engine.Step, bool) {
	if r.v.tags == nil {
		return engine.Step{}, false
	}
	tags, err := r.v.tags.Tags(ctx, r.api.Name)
	if err != nil {
		logging.Warn("Suite", "Cannot fetch GitHub tags of %s: %v", r.api.Name, err)
		return engine.Step{}, false
	}
	if len(tags) == 0 {
		return engine.Step{}, false
	}
	current := r.st.Version()
	return engine.Step{
		Name: StepVersion,
		Run: func(context.Context, *engine.StepContext) error {
			if !githubtags.Contains(tags, current) {
				return engine.Fail(report.StatusFailure, "API version %s is not valid. It's not listed as a tag in GitHub.", current)
			}
			if newer, ok := githubtags.Newer(tags, current); ok {
				return engine.Fail(report.StatusNotice, "There is a new version of this API available (%s). "+
					"Consider upgrading your implementation.", newer)
			}
			return nil
		},
	}, true
}

// parameterStep resolves one parameter. Anything short of success aborts
// the run, since the main phase depends on every fixture.
func (r *run) parameterStep(p fixture.Parameter) engine.Step {
	name := p.Step
	if name == "" {
		name = "Resolving the " + p.Name + " parameter."
	}
	return engine.Step{
		Name:    name,
		AbortAt: report.StatusNotice,
		Run: func(ctx context.Context, _ *engine.StepContext) error {
			env := fixture.Env{
				URL:       r.st.URL(),
				Catalogue: r.lookup,
				Probe:     r.probe,
			}
			if entry, ok := r.st.Entry(); ok {
				env.Manifest = entry.Params
			}
			err := r.plan.ResolveOne(ctx, p, env, r.st.Values())
			var unresolved *fixture.UnresolvedError
			switch {
			case err == nil:
				return nil
			case errors.As(err, &unresolved):
				return engine.FailMsg(report.StatusFailure, unresolved.Error())
			case ctx.Err() != nil:
				return ctx.Err()
			}
			return engine.FailMsg(report.StatusError, err.Error())
		},
	}
}
