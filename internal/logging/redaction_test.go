package logging_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/gcpsecrets/internal/logging"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

// TestSecretRedactionAcrossLogLevels verifies redaction works at all log levels
func TestSecretRedactionAcrossLogLevels(t *testing.T) {
	t.Parallel()

	secretValue := "multi-level-secret-abc"

	levels := []struct {
		name  string
		logFn func(*logging.Logger, string, ...interface{})
	}{
		{"info", (*logging.Logger).Info},
		{"warn", (*logging.Logger).Warn},
		{"error", (*logging.Logger).Error},
		{"debug", (*logging.Logger).Debug},
	}

	for _, tt := range levels {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger := testutil.NewTestLogger(t)
			tt.logFn(logger.Logger(), "Secret: %s", logging.Secret(secretValue))

			testutil.AssertSecretRedacted(t, logger.GetOutput(), secretValue)
			logger.AssertLogCount(t, tt.name, 1)
		})
	}
}

func TestSecretRedactionWithFormatting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		secret     string
		formatStr  string
		formatArgs []interface{}
	}{
		{
			name:       "string_format",
			secret:     "secret-string-format",
			formatStr:  "Value: %s",
			formatArgs: []interface{}{logging.Secret("secret-string-format")},
		},
		{
			name:       "value_format",
			secret:     "secret-value-format",
			formatStr:  "Value: %v",
			formatArgs: []interface{}{logging.Secret("secret-value-format")},
		},
		{
			name:       "go_syntax_format",
			secret:     "secret-go-syntax",
			formatStr:  "Value: %#v",
			formatArgs: []interface{}{logging.Secret("secret-go-syntax")},
		},
		{
			name:       "multiple_placeholders",
			secret:     "secret-multi",
			formatStr:  "First: %s, Second: %s",
			formatArgs: []interface{}{"public", logging.Secret("secret-multi")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logging.NewWithWriter(&buf, false, true).Info(tt.formatStr, tt.formatArgs...)

			assert.Contains(t, buf.String(), "[REDACTED]")
			assert.NotContains(t, buf.String(), tt.secret)
		})
	}
}

func TestMultipleSecretsRedaction(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.NewWithWriter(&buf, false, true).Info("a=%s b=%s public=%s",
		logging.Secret("password-123"),
		logging.Secret("api-key-456"),
		"project-1")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "[REDACTED]"))
	assert.NotContains(t, out, "password-123")
	assert.NotContains(t, out, "api-key-456")
	assert.Contains(t, out, "project-1")
}

func TestSecretTypeStringers(t *testing.T) {
	t.Parallel()

	secret := logging.Secret("test-secret-value")
	assert.Equal(t, "[REDACTED]", secret.String())
	assert.Equal(t, "[REDACTED]", secret.GoString())
	assert.Equal(t, "[REDACTED]", fmt.Sprint(logging.Secret("")))
}

// TestRedactFunction verifies the Redact helper function
func TestRedactFunction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single_secret",
			input:    "password is secret123",
			secrets:  []string{"secret123"},
			expected: "password is [REDACTED]",
		},
		{
			name:     "multiple_secrets",
			input:    "user:admin password:secret123 token:xyz789",
			secrets:  []string{"admin", "secret123", "xyz789"},
			expected: "user:[REDACTED] password:[REDACTED] token:[REDACTED]",
		},
		{
			name:     "no_secrets",
			input:    "public information",
			secrets:  []string{},
			expected: "public information",
		},
		{
			name:     "short_secrets_not_redacted",
			input:    "value is abc",
			secrets:  []string{"abc"},
			expected: "value is abc",
		},
		{
			name:     "empty_secret_ignored",
			input:    "value is test",
			secrets:  []string{""},
			expected: "value is test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, logging.Redact(tt.input, tt.secrets))
		})
	}
}
