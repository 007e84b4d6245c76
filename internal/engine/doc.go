// Package engine executes validation steps in order and records their
// outcome.
//
// A step body reports its result through its return value:
//
//   - nil: SUCCESS with the message "OK"
//   - *Failure: the given status and message; the run continues
//   - *Abort: the suite stops after recording the step
//   - any other error or a panic: ERROR; the run continues
//
// A step with AbortAt set stops the suite when its status reaches that
// threshold. The context is checked before and after every step, so a
// cancelled run keeps the results gathered so far.
package engine
