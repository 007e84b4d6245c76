package engine

import (
	"errors"
	"fmt"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
)

// ErrCancelled is returned when the run's context ends before all steps ran.
var ErrCancelled = errors.New("validation run cancelled")

// Failure is a local step outcome: it is recorded and execution continues,
// unless the step's AbortAt threshold says otherwise.
type Failure struct {
	Status  report.Status
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Status, f.Message)
}

// Fail builds a *Failure with a formatted message.
func Fail(status report.Status, format string, args ...interface{}) *Failure {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Failure{Status: status, Message: msg}
}

// FailMsg builds a *Failure with a message used as is.
func FailMsg(status report.Status, msg string) *Failure {
	return &Failure{Status: status, Message: msg}
}

// Abort is returned by a step body that must stop the whole suite
// regardless of its configured threshold.
type Abort struct {
	Status  report.Status
	Message string
}

func (a *Abort) Error() string {
	return a.Message
}

// AbortError is returned by Runner.Do when a step aborted the suite.
type AbortError struct {
	Step    string
	Status  report.Status
	Message string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("suite aborted at %q (%s): %s", e.Step, e.Status, e.Message)
}

// IsAbort reports whether err stopped the suite.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
