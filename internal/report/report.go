package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report is the result of one validation run. It is filled by a single run
// and then handed out by value through Snapshot.
type Report struct {
	ID          string    `json:"id"`
	API         string    `json:"api"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	Security    string    `json:"security,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt,omitempty"`
	Steps       []Step    `json:"steps"`
	Aborted     bool      `json:"aborted,omitempty"`
	AbortReason string    `json:"abortReason,omitempty"`
	Cancelled   bool      `json:"cancelled,omitempty"`
}

// Counts is the number of steps per status.
type Counts map[Status]int

// Recorder accumulates steps for a report while a run is in progress. It is
// safe for concurrent readers; only the owning run appends.
type Recorder struct {
	mu     sync.RWMutex
	report Report
}

// NewRecorder starts a report with a fresh id.
func NewRecorder(api, endpoint, version, url string, now time.Time) *Recorder {
	return &Recorder{report: Report{
		ID:        uuid.NewString(),
		API:       api,
		Endpoint:  endpoint,
		Version:   version,
		URL:       url,
		StartedAt: now,
		Steps:     []Step{},
	}}
}

// SetSecurity records the descriptor filter of the run.
func (r *Recorder) SetSecurity(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Security = code
}

// Append adds a finished step. Pending steps are promoted to success.
func (r *Recorder) Append(s Step) {
	if s.Status == StatusPending {
		s.Status = StatusSuccess
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Steps = append(r.report.Steps, s)
}

// Abort marks the run as stopped by a critical step.
func (r *Recorder) Abort(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Aborted = true
	r.report.AbortReason = reason
}

// Cancel marks the run as stopped by its context.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Cancelled = true
}

// Finish stamps the end time.
func (r *Recorder) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.FinishedAt = now
}

// Len returns the number of steps recorded so far.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.report.Steps)
}

// Snapshot returns a copy that later appends do not affect.
func (r *Recorder) Snapshot() Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.report
	out.Steps = make([]Step, len(r.report.Steps))
	copy(out.Steps, r.report.Steps)
	return out
}

// Worst returns the most severe status among all steps, or SUCCESS for an
// empty report.
func (r Report) Worst() Status {
	worst := StatusSuccess
	for _, s := range r.Steps {
		worst = Max(worst, s.Status)
	}
	return worst
}

// Counts tallies steps by status. Skipped steps are counted separately under
// the returned skipped value.
func (r Report) Counts() (counts Counts, skipped int) {
	counts = make(Counts)
	for _, s := range r.Steps {
		if s.Skipped {
			skipped++
			continue
		}
		counts[s.Status]++
	}
	return counts, skipped
}

// Passed reports whether no step went beyond a warning and the run was not
// aborted or cancelled.
func (r Report) Passed() bool {
	return !r.Aborted && !r.Cancelled && r.Worst() < StatusFailure
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StepsWith returns the steps whose status is at least min.
func (r Report) StepsWith(min Status) []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Status.AtLeast(min) {
			out = append(out, s)
		}
	}
	return out
}
