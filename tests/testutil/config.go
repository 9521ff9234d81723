// Package testutil provides test utilities and helpers for gcpsecrets tests.
//
// This package contains shared test infrastructure including configuration
// builders, logger capture, assertions and the remote client contract suite.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/systmms/gcpsecrets/internal/config"
	"gopkg.in/yaml.v3"
)

// TestConfigBuilder provides a fluent API for building test configurations.
//
// This builder allows programmatic creation of gcpsecrets.yaml files for
// testing without manually writing YAML strings. Files live in t.TempDir()
// and are removed by the testing framework.
//
// Example usage:
//
//	path := NewTestConfig(t).
//	    WithBackend(config.BackendGCP).
//	    WithProject("proj").
//	    WithCacheTTL(60).
//	    Write()
type TestConfigBuilder struct {
	settings *config.Settings
	t        *testing.T
}

// NewTestConfig creates a new TestConfigBuilder with an empty configuration.
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		settings: &config.Settings{},
		t:        t,
	}
}

// WithBackend selects the remote service.
func (b *TestConfigBuilder) WithBackend(backend string) *TestConfigBuilder {
	b.settings.Backend = backend
	return b
}

// WithProject sets the project, region or vault.
func (b *TestConfigBuilder) WithProject(project string) *TestConfigBuilder {
	b.settings.Project = project
	return b
}

// WithCache enables or disables caching.
func (b *TestConfigBuilder) WithCache(enabled bool) *TestConfigBuilder {
	b.settings.Cache = &enabled
	return b
}

// WithCacheTTL sets the latest-version cache TTL in seconds.
func (b *TestConfigBuilder) WithCacheTTL(seconds int) *TestConfigBuilder {
	b.settings.CacheTTLSeconds = &seconds
	return b
}

// WithSealCache keeps cached payloads in locked memory.
func (b *TestConfigBuilder) WithSealCache() *TestConfigBuilder {
	b.settings.SealCache = true
	return b
}

// WithGCP sets the Secret Manager client settings.
func (b *TestConfigBuilder) WithGCP(gcp config.GCPSettings) *TestConfigBuilder {
	b.settings.GCP = gcp
	return b
}

// WithAWS sets the Secrets Manager and SSM client settings.
func (b *TestConfigBuilder) WithAWS(aws config.AWSSettings) *TestConfigBuilder {
	b.settings.AWS = aws
	return b
}

// WithAzure sets the Key Vault client settings.
func (b *TestConfigBuilder) WithAzure(azure config.AzureSettings) *TestConfigBuilder {
	b.settings.Azure = azure
	return b
}

// Build returns the in-memory settings. Defaults are not applied; use Write
// and config.Config.Load for that.
func (b *TestConfigBuilder) Build() *config.Settings {
	return b.settings
}

// Write writes the configuration to a temporary gcpsecrets.yaml and returns
// its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.settings)
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	return WriteTestConfig(b.t, string(data))
}

// WriteTestConfig writes a YAML string to a temporary gcpsecrets.yaml and
// returns its path.
//
// Example:
//
//	path := WriteTestConfig(t, `
//	backend: aws
//	project: us-east-1
//	cache_ttl_seconds: 0
//	`)
func WriteTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultPath)
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}
