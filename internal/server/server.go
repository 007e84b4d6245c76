package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/moogar0880/problems"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/fixture"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/metrics"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/reportstore"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds a whole validation run plus writing its report.
	DefaultWriteTimeout = 10 * time.Minute
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultShutdownTimeout is how long Shutdown waits for running validations.
	DefaultShutdownTimeout = 30 * time.Second

	// maxBodySize caps validate request bodies.
	maxBodySize = 1 << 20

	jsonMediaType = "application/json"
)

// Options configures a Server. Validator is required.
type Options struct {
	Validator *suite.Validator
	// Store keeps finished reports when set.
	Store *reportstore.Store
	// Metrics is served on MetricsPath and fed with every run when set.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// Server is the HTTP front of a Validator.
type Server struct {
	validator   *suite.Validator
	store       *reportstore.Store
	metrics     *metrics.Metrics
	metricsPath string

	httpServer *http.Server
}

// New creates a server. It does not listen until Serve or ListenAndServe.
func New(opts Options) (*Server, error) {
	if opts.Validator == nil {
		return nil, fmt.Errorf("server needs a validator")
	}
	path := opts.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	return &Server{
		validator:   opts.Validator,
		store:       opts.Store,
		metrics:     opts.Metrics,
		metricsPath: path,
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/v1/apis", s.handleAPIs)
	mux.HandleFunc("GET /api/v1/parameters", s.handleParameters)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("GET /api/v1/reports", s.handleReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", s.handleReport)

	return mux
}

// ListenAndServe listens on addr and serves until ctx ends, then shuts down
// gracefully. ready is called once the listener is bound.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func()) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, ready)
}

// Serve serves on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener, ready func()) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	logging.Info("Server", "Listening on %s", ln.Addr())
	if ready != nil {
		ready()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("Server", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// apiInfo is the listing view of a registered suite.
type apiInfo struct {
	Name       string              `json:"name"`
	Endpoint   string              `json:"endpoint,omitempty"`
	MinMajor   int                 `json:"minMajor"`
	MaxMajor   int                 `json:"maxMajor,omitempty"`
	Parameters []fixture.Parameter `json:"parameters"`
}

func (s *Server) handleAPIs(w http.ResponseWriter, r *http.Request) {
	apis := s.validator.Registry().APIs()
	out := make([]apiInfo, 0, len(apis))
	for _, a := range apis {
		params := a.Parameters
		if params == nil {
			params = []fixture.Parameter{}
		}
		out = append(out, apiInfo{
			Name:       a.Name,
			Endpoint:   a.Endpoint,
			MinMajor:   a.MinMajor,
			MaxMajor:   a.MaxMajor,
			Parameters: params,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	api, version := q.Get("api"), q.Get("version")
	if api == "" || version == "" {
		writeProblem(w, http.StatusBadRequest, "api and version query parameters are required")
		return
	}
	params, err := s.validator.ListParameters(api, q.Get("endpoint"), version)
	if err != nil {
		writeProblem(w, statusFor(err), err.Error())
		return
	}
	if params == nil {
		params = []fixture.Parameter{}
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" || req.API == "" || req.Version == "" {
		writeProblem(w, http.StatusBadRequest, "url, api and version are required")
		return
	}

	if s.metrics != nil {
		defer s.metrics.RunStarted()()
	}
	rep, err := s.validator.Validate(r.Context(), req)
	if rep.ID == "" {
		// Nothing ran.
		writeProblem(w, statusFor(err), err.Error())
		return
	}
	if err != nil {
		logging.Warn("Server", "Run %s ended early: %v", rep.ID, err)
	}
	if s.metrics != nil {
		s.metrics.ObserveReport(rep)
	}
	if s.store != nil {
		if err := s.store.Save(rep); err != nil {
			logging.Error("Server", err, "Failed to store report %s", rep.ID)
		}
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeProblem(w, http.StatusNotFound, "report storage is not configured")
		return
	}
	entries, err := s.store.List(r.URL.Query().Get("api"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []reportstore.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeProblem(w, http.StatusNotFound, "report storage is not configured")
		return
	}
	rep, err := s.store.Load(r.PathValue("id"))
	if err != nil {
		writeProblem(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// statusFor maps validator and store errors to HTTP statuses.
func statusFor(err error) int {
	var overrideErr *fixture.OverrideError
	switch {
	case errors.Is(err, suite.ErrUnknownAPI),
		errors.Is(err, suite.ErrUnsupportedVersion),
		errors.Is(err, reportstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, suite.ErrNoCatalogue), errors.Is(err, suite.ErrNoTransport):
		return http.StatusServiceUnavailable
	case errors.As(err, &overrideErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	prob := problems.NewDetailedProblem(status, detail)
	w.Header().Set("Content-Type", problems.ProblemMediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(prob); err != nil {
		logging.Debug("Server", "Failed to write problem document: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonMediaType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Server", "Failed to write response: %v", err)
	}
}
