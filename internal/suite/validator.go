package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/githubtags"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/security"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/semver"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

var (
	// ErrNoCatalogue is returned when no catalogue snapshot is available.
	ErrNoCatalogue = errors.New("registry catalogue is not loaded")
	// ErrNoTransport is returned when the validator has no HTTP client.
	ErrNoTransport = errors.New("no transport configured")
)

// Request names one validation run.
type Request struct {
	URL      string `json:"url" yaml:"url" mapstructure:"url"`
	API      string `json:"api" yaml:"api" mapstructure:"api"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Version  string `json:"version" yaml:"version" mapstructure:"version"`
	// Security restricts the run to one four letter descriptor code.
	Security string `json:"security,omitempty" yaml:"security,omitempty" mapstructure:"security"`
	// Parameters override resolved parameter values.
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

func (r Request) String() string {
	key := API{Name: r.API, Endpoint: r.Endpoint}.Key()
	return fmt.Sprintf("%s %s at %s", key, r.Version, r.URL)
}

// Validator runs API suites. It is safe for concurrent use; each Validate
// call owns its run state.
type Validator struct {
	registry  *Registry
	client    transport.Client
	catalogue func() catalogue.Lookup
	creds     *transport.Credentials
	codec     transport.Codec
	tags      githubtags.Source
	logger    engine.Logger
	observers []engine.Observer
	now       func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

func WithTransport(c transport.Client) Option {
	return func(v *Validator) { v.client = c }
}

// WithCatalogue uses a fixed catalogue.
func WithCatalogue(l catalogue.Lookup) Option {
	return func(v *Validator) { v.catalogue = func() catalogue.Lookup { return l } }
}

// WithCatalogueStore reads the current snapshot of s at the start of every
// run.
func WithCatalogueStore(s *catalogue.Store) Option {
	return func(v *Validator) {
		v.catalogue = func() catalogue.Lookup {
			if c := s.Current(); c != nil {
				return c
			}
			return nil
		}
	}
}

func WithCredentials(c *transport.Credentials) Option {
	return func(v *Validator) { v.creds = c }
}

// WithCodec enables the EWP encryption combinations.
func WithCodec(c transport.Codec) Option {
	return func(v *Validator) { v.codec = c }
}

// WithTags enables the API version step.
func WithTags(s githubtags.Source) Option {
	return func(v *Validator) { v.tags = s }
}

func WithLogger(l engine.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

func WithObserver(o engine.Observer) Option {
	return func(v *Validator) {
		if o != nil {
			v.observers = append(v.observers, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator for the suites in registry.
func NewValidator(registry *Registry, opts ...Option) *Validator {
	v := &Validator{
		registry: registry,
		logger:   engine.NewSilentLogger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Registry returns the suites the validator knows.
func (v *Validator) Registry() *Registry {
	return v.registry
}

// Validate runs the suite matching req. Configuration problems (unknown API,
// malformed version or security code, bad overrides) are returned as errors
// before anything is sent. Suite aborts are part of the report. A cancelled
// run returns the partial report together with an error wrapping
// engine.ErrCancelled.
func (v *Validator) Validate(ctx context.Context, req Request) (report.Report, error) {
	version, err := semver.Parse(req.Version)
	if err != nil {
		return report.Report{}, fmt.Errorf("invalid version %q: %w", req.Version, err)
	}
	api, err := v.registry.Find(req.API, req.Endpoint, version)
	if err != nil {
		return report.Report{}, err
	}
	var filter *security.Descriptor
	if req.Security != "" {
		d, err := security.ParseDescriptor(req.Security)
		if err != nil {
			return report.Report{}, fmt.Errorf("invalid security filter: %w", err)
		}
		filter = &d
	}
	plan, err := fixture.NewPlan(api.Parameters, req.Parameters)
	if err != nil {
		return report.Report{}, err
	}
	if v.client == nil {
		return report.Report{}, ErrNoTransport
	}
	var lookup catalogue.Lookup
	if v.catalogue != nil {
		lookup = v.catalogue()
	}
	if lookup == nil {
		return report.Report{}, ErrNoCatalogue
	}

	started := v.now()
	rec := report.NewRecorder(api.Name, api.Endpoint, version.String(), req.URL, started)
	if filter != nil {
		rec.SetSecurity(filter.String())
	}
	opts := []engine.Option{engine.WithLogger(v.logger), engine.WithClock(v.now)}
	for _, o := range v.observers {
		opts = append(opts, engine.WithObserver(o))
	}
	runner := engine.NewRunner(rec, opts...)

	st := newState(req.URL, api.Name, api.Endpoint, version)
	st.setStarted(started)

	logging.Info("Suite", "Validating %s", req)
	runErr := newRun(v, api, st, runner, lookup, plan, filter).execute(ctx)
	rec.Finish(v.now())
	rep := rec.Snapshot()

	if runErr != nil {
		logging.Warn("Suite", "Validation of %s stopped: %v", req, runErr)
		return rep, runErr
	}
	logging.Info("Suite", "Validated %s: worst status %s", req, rep.Worst())
	return rep, nil
}

// ListParameters returns the parameters a run of api may be given.
func (v *Validator) ListParameters(api, endpoint, version string) ([]fixture.Parameter, error) {
	ver, err := semver.Parse(version)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return v.registry.Parameters(api, endpoint, ver)
}

// Result is the outcome of one request of a ValidateAll call.
type Result struct {
	Request Request
	Report  report.Report
	Err     error
}

// ValidateAll runs reqs with at most parallel runs at a time. Results keep
// the order of reqs. Per-run errors are stored in the results; only the
// context ending is returned.
func (v *Validator) ValidateAll(ctx context.Context, reqs []Request, parallel int) ([]Result, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			rep, err := v.Validate(gctx, req)
			results[i] = Result{Request: req, Report: rep, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
