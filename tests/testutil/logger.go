package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/gcpsecrets/internal/logging"
)

// TestLogger captures the output of a logging.Logger for validation in tests.
//
// The wrapped logger writes to an in-memory buffer, allowing tests to verify
// that secrets are properly redacted and that expected log messages are
// produced. Colors are always off so markers can be matched literally.
//
// Example usage:
//
//	logger := NewTestLogger(t)
//	store, _ := secretstore.New(ctx, client, secretstore.WithLogger(logger.Logger()))
//
//	logger.AssertContains(t, "Resolved latest version")
//	logger.AssertNotContains(t, "password123")
type TestLogger struct {
	buffer *syncBuffer
	logger *logging.Logger
}

// NewTestLogger creates a TestLogger with debug output enabled.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	return NewTestLoggerWithDebug(t, true)
}

// NewTestLoggerWithDebug creates a TestLogger; Debug lines are captured only
// when debug is true.
func NewTestLoggerWithDebug(t *testing.T, debug bool) *TestLogger {
	t.Helper()

	buf := &syncBuffer{}
	return &TestLogger{
		buffer: buf,
		logger: logging.NewWithWriter(buf, debug, true),
	}
}

// Logger returns the logger writing into the capture buffer.
func (l *TestLogger) Logger() *logging.Logger {
	return l.logger
}

// GetOutput returns everything logged since creation or the last Clear.
func (l *TestLogger) GetOutput() string {
	return l.buffer.String()
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does NOT contain substr.
//
// This is particularly useful for verifying that secrets are redacted.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr, "Expected log output to NOT contain %q", substr)
}

// AssertLogCount asserts that a level appears count times.
//
// Level markers:
//   - info: "✓"
//   - warn: "⚠"
//   - error: "✗"
//   - debug: "[DEBUG]"
func (l *TestLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	var marker string
	switch level {
	case "info":
		marker = "✓"
	case "warn":
		marker = "⚠"
	case "error":
		marker = "✗"
	case "debug":
		marker = "[DEBUG]"
	default:
		t.Fatalf("Unknown log level: %s", level)
	}

	actual := strings.Count(l.GetOutput(), marker)
	assert.Equal(t, count, actual, "Expected %d %s log messages, got %d", count, level, actual)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
