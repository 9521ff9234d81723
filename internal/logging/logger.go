package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger writes human-oriented status lines to stderr. Secret values must be
// wrapped in Secret before they reach a format call.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	debug   bool
	noColor bool
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		out:     w,
		debug:   debug,
		noColor: noColor,
	}
}

// DebugEnabled reports whether Debug lines are written.
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.write("\033[36m[DEBUG]\033[0m", "[DEBUG]", format, args...)
}

func (l *Logger) write(colored, plain, format string, args ...interface{}) {
	prefix := colored
	if l.noColor {
		prefix = plain
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
