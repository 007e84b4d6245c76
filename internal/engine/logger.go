package engine

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Logger receives engine trace output.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	IsDebugEnabled() bool
	IsVerboseEnabled() bool
}

// writerLogger implements Logger for CLI mode, writing to the given streams.
type writerLogger struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	debug   bool
}

// NewStdoutLogger creates a logger that outputs to stdout/stderr
func NewStdoutLogger(verbose, debug bool) Logger {
	return NewWriterLogger(os.Stdout, os.Stderr, verbose, debug)
}

// NewWriterLogger is NewStdoutLogger with explicit streams.
func NewWriterLogger(out, errOut io.Writer, verbose, debug bool) Logger {
	return &writerLogger{out: out, errOut: errOut, verbose: verbose, debug: debug}
}

func (l *writerLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *writerLogger) Info(format string, args ...interface{}) {
	if l.verbose || l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *writerLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.errOut, format, args...)
}

func (l *writerLogger) IsDebugEnabled() bool {
	return l.debug
}

func (l *writerLogger) IsVerboseEnabled() bool {
	return l.verbose
}

// silentLogger suppresses all output; the HTTP service uses it so that
// concurrent runs do not interleave on stdout.
type silentLogger struct{}

// NewSilentLogger creates a logger that suppresses all output.
func NewSilentLogger() Logger {
	return silentLogger{}
}

func (silentLogger) Debug(string, ...interface{}) {}
func (silentLogger) Info(string, ...interface{})  {}
func (silentLogger) Error(string, ...interface{}) {}
func (silentLogger) IsDebugEnabled() bool         { return false }
func (silentLogger) IsVerboseEnabled() bool       { return false }

// subsystemLogger forwards to pkg/logging.
type subsystemLogger struct {
	subsystem string
}

// NewSubsystemLogger routes engine trace through the structured logger.
func NewSubsystemLogger(subsystem string) Logger {
	return subsystemLogger{subsystem: subsystem}
}

func (l subsystemLogger) Debug(format string, args ...interface{}) {
	logging.Debug(l.subsystem, trimNewline(format), args...)
}

func (l subsystemLogger) Info(format string, args ...interface{}) {
	logging.Info(l.subsystem, trimNewline(format), args...)
}

func (l subsystemLogger) Error(format string, args ...interface{}) {
	logging.Error(l.subsystem, nil, trimNewline(format), args...)
}

func (subsystemLogger) IsDebugEnabled() bool   { return true }
func (subsystemLogger) IsVerboseEnabled() bool { return true }

func trimNewline(s string) string {
	return strings.TrimRight(s, "\n")
}
