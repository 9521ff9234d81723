package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSecretRedacted verifies that a secret value does not appear in a string.
//
// This is a specialized assertion for security testing. It checks that the
// secret value is not present in the output, and that the [REDACTED] marker
// is present instead.
//
// Example usage:
//
//	output := logger.GetOutput()
//	AssertSecretRedacted(t, output, "password123")
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker in output when secret is used")
}

// AssertNoSecretLeak verifies that none of the payloads appear in output.
//
// Unlike AssertSecretRedacted it does not require a [REDACTED] marker, so it
// fits error messages and command output that never mention the value.
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should not appear in output", secret)
	}
}

// AssertErrorContains verifies that an error occurred and contains a substring.
//
// Example usage:
//
//	_, err := store.Get(ctx, secretstore.Latest("db"))
//	AssertErrorContains(t, err, "not found")
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()

	if assert.Error(t, err, "Expected an error to occur") {
		assert.Contains(t, err.Error(), substr,
			"Error message should contain %q", substr)
	}
}

// AssertLinesContain verifies that specific lines are present in multi-line output.
//
// This is useful for testing command output line-by-line.
//
// Example usage:
//
//	AssertLinesContain(t, out, []string{"Backend:", "Project: proj"})
func AssertLinesContain(t *testing.T, output string, expectedLines []string) {
	t.Helper()

	lines := strings.Split(output, "\n")
	for _, expected := range expectedLines {
		found := false
		for _, line := range lines {
			if strings.Contains(line, expected) {
				found = true
				break
			}
		}
		assert.True(t, found, "Expected to find line containing %q in output:\n%s", expected, output)
	}
}
