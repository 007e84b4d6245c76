package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// Step is one check to execute.
type Step struct {
	Name string
	// Combination is the five-letter code the step runs under, if any.
	Combination string
	// Skip is evaluated right before execution.
	Skip func() (bool, string)
	// AbortAt escalates the step to a suite abort when its status is at
	// least this value. StatusPending disables escalation.
	AbortAt report.Status
	Run     func(ctx context.Context, sc *StepContext) error
}

// StepContext lets a step body attach HTTP snapshots to its result.
type StepContext struct {
	step   *report.Step
	logger Logger
}

func (sc *StepContext) RecordRequest(e report.HTTPExchange) {
	sc.step.AddRequest(e)
}

func (sc *StepContext) RecordResponse(e report.HTTPExchange) {
	sc.step.AddResponse(e)
}

func (sc *StepContext) Logger() Logger {
	return sc.logger
}

// Observer is notified of every finished step.
type Observer interface {
	StepFinished(s report.Step)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(report.Step)

func (f ObserverFunc) StepFinished(s report.Step) { f(s) }

// Runner executes steps strictly in order and appends their results to a
// Recorder.
type Runner struct {
	rec       *report.Recorder
	phase     report.Phase
	logger    Logger
	observers []Observer
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(l Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner in the setup phase.
func NewRunner(rec *report.Recorder, opts ...Option) *Runner {
	r := &Runner{
		rec:    rec,
		phase:  report.PhaseSetup,
		logger: NewSilentLogger(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetPhase changes the phase recorded on subsequent steps.
func (r *Runner) SetPhase(p report.Phase) {
	r.phase = p
}

// Now returns the runner's clock reading.
func (r *Runner) Now() time.Time {
	return r.now()
}

// Do runs one step and records its result. It returns the step status and
// a non-nil error only when the run must stop: *AbortError or ErrCancelled.
func (r *Runner) Do(ctx context.Context, s Step) (report.Status, error) {
	if err := ctx.Err(); err != nil {
		r.rec.Cancel()
		return report.StatusPending, fmt.Errorf("%w before %q: %v", ErrCancelled, s.Name, err)
	}

	result := report.Step{
		Name:        s.Name,
		Phase:       r.phase,
		Combination: s.Combination,
		Status:      report.StatusPending,
	}

	if s.Skip != nil {
		if skip, reason := s.Skip(); skip {
			result.Status = report.StatusSuccess
			result.Skipped = true
			result.SkipReason = reason
			r.logger.Debug("⏭️  %s: %s\n", s.Name, reason)
			r.finish(result)
			return result.Status, nil
		}
	}

	r.logger.Debug("▶️  %s\n", s.Name)
	start := r.now()
	sc := &StepContext{step: &result, logger: r.logger}
	err := r.invoke(ctx, s, sc)
	result.Duration = r.now().Sub(start)

	forceAbort := false
	var failure *Failure
	var abort *Abort
	var pe *panicError
	switch {
	case err == nil:
		result.Status = report.StatusSuccess
		result.Message = "OK"
	case errors.As(err, &failure):
		result.Status = failure.Status
		result.Message = failure.Message
	case errors.As(err, &abort):
		result.Status = report.Max(abort.Status, report.StatusFailure)
		result.Message = abort.Message
		forceAbort = true
	case errors.As(err, &pe):
		result.Status = report.StatusError
		result.Message = fmt.Sprintf("Other error occurred. Please contact the developers.: %v", pe.value)
		result.Trace = pe.stack
	default:
		result.Status = report.StatusError
		result.Message = err.Error()
	}

	if result.Status == report.StatusPending {
		result.Status = report.StatusSuccess
	}
	r.finish(result)

	if ctx.Err() != nil {
		r.rec.Cancel()
		return result.Status, fmt.Errorf("%w during %q: %v", ErrCancelled, s.Name, ctx.Err())
	}

	if forceAbort || (s.AbortAt != report.StatusPending && result.Status.AtLeast(s.AbortAt)) {
		r.rec.Abort(result.Message)
		return result.Status, &AbortError{Step: s.Name, Status: result.Status, Message: result.Message}
	}
	return result.Status, nil
}

// Run executes steps until one aborts or the context ends.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for _, s := range steps {
		if _, err := r.Do(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

type panicError struct {
	value interface{}
	stack string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// Contain calls fn and turns a panic into an error. Returned from a step
// body, the error is recorded like a panic raised by the step itself.
func Contain(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v, stack: string(debug.Stack())}
		}
	}()
	fn()
	return nil
}

func (r *Runner) invoke(ctx context.Context, s Step, sc *StepContext) (err error) {
	if s.Run == nil {
		return nil
	}
	if perr := Contain(func() { err = s.Run(ctx, sc) }); perr != nil {
		return perr
	}
	return err
}

func (r *Runner) finish(result report.Step) {
	r.rec.Append(result)
	symbol := Symbol(result)
	if result.Status.AtLeast(report.StatusWarning) {
		r.logger.Info("%s %s: %s\n", symbol, result.Name, result.Message)
	} else {
		r.logger.Debug("%s %s\n", symbol, result.Name)
	}
	for _, o := range r.observers {
		o.StepFinished(result)
	}
}

// Symbol returns the console symbol of a finished step.
func Symbol(s report.Step) string {
	if s.Skipped {
		return "⏭️"
	}
	switch s.Status {
	case report.StatusSuccess:
		return "✅"
	case report.StatusNotice:
		return "ℹ️"
	case report.StatusWarning:
		return "⚠️"
	case report.StatusFailure:
		return "❌"
	case report.StatusError:
		return "💥"
	default:
		return "❓"
	}
}
