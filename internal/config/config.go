package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/logging"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "gcpsecrets.yaml"

// Backend names.
const (
	BackendGCP    = "gcp"
	BackendAWS    = "aws"
	BackendAWSSSM = "aws-ssm"
	BackendAzure  = "azure"
)

const (
	defaultCacheTTLSeconds = 300
	defaultTimeoutMs       = 30000
)

//go:embed schema.json
var schemaJSON string

// Config holds the runtime configuration
type Config struct {
	Path string
	// PathExplicit is set when the path was given on the command line; a
	// missing file is then an error instead of falling back to defaults.
	PathExplicit bool
	// Overrides are applied on top of the file by Load.
	Overrides Overrides
	Logger    *logging.Logger
	Settings  *Settings
}

// Settings is the gcpsecrets.yaml structure.
type Settings struct {
	Backend         string        `yaml:"backend,omitempty" json:"backend,omitempty"`
	Project         string        `yaml:"project,omitempty" json:"project,omitempty"`
	Cache           *bool         `yaml:"cache,omitempty" json:"cache,omitempty"`
	CacheTTLSeconds *int          `yaml:"cache_ttl_seconds,omitempty" json:"cache_ttl_seconds,omitempty"`
	SealCache       bool          `yaml:"seal_cache,omitempty" json:"seal_cache,omitempty"`
	TimeoutMs       int           `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	GCP             GCPSettings   `yaml:"gcp,omitempty" json:"gcp,omitempty"`
	AWS             AWSSettings   `yaml:"aws,omitempty" json:"aws,omitempty"`
	Azure           AzureSettings `yaml:"azure,omitempty" json:"azure,omitempty"`

	// cacheTTL holds a --cache-ttl override at full precision.
	cacheTTL *time.Duration
}

// GCPSettings configures the Secret Manager client.
type GCPSettings struct {
	ServiceAccountKeyPath     string      `yaml:"service_account_key_path,omitempty" json:"service_account_key_path,omitempty"`
	ImpersonateServiceAccount string      `yaml:"impersonate_service_account,omitempty" json:"impersonate_service_account,omitempty"`
	CredentialsKeyring        *KeyringRef `yaml:"credentials_keyring,omitempty" json:"credentials_keyring,omitempty"`
	Endpoint                  string      `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// KeyringRef names an OS keyring item holding a service-account JSON key.
type KeyringRef struct {
	Service string `yaml:"service" json:"service"`
	User    string `yaml:"user" json:"user"`
}

// AWSSettings configures the Secrets Manager and SSM clients. The project
// is the region.
type AWSSettings struct {
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// AzureSettings configures the Key Vault client. The project is the vault
// name or URL.
type AzureSettings struct {
	TenantID               string `yaml:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	ClientID               string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientSecret           string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
	UseManagedIdentity     bool   `yaml:"use_managed_identity,omitempty" json:"use_managed_identity,omitempty"`
	UserAssignedIdentityID string `yaml:"user_assigned_identity_id,omitempty" json:"user_assigned_identity_id,omitempty"`
}

// Overrides carries command-line values that take precedence over the file.
// Nil fields leave the file value in place.
type Overrides struct {
	Backend  *string
	Project  *string
	Cache    *bool
	CacheTTL *time.Duration
	Seal     *bool
}

// Load reads and validates the configuration file, then applies Overrides.
// A missing default file yields the default settings.
func (c *Config) Load() error {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !c.PathExplicit {
			c.Settings = &Settings{}
			c.Settings.applyDefaults()
			return c.Settings.Apply(c.Overrides)
		}
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path, or omit it to use defaults",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	settings, err := Parse(data)
	if err != nil {
		return err
	}
	c.Settings = settings
	return c.Settings.Apply(c.Overrides)
}

// Parse decodes, validates and defaults a configuration document.
func Parse(data []byte) (*Settings, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: err.Error(),
		}
	}
	s.applyDefaults()
	return &s, nil
}

func validate(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return dserrors.ConfigError{
			Message:    "configuration cannot be represented as JSON",
			Suggestion: "Use string keys and scalar values only",
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var messages []string
	field := ""
	for _, desc := range result.Errors() {
		if field == "" {
			field = desc.Field()
		}
		messages = append(messages, desc.String())
	}
	return dserrors.ConfigError{
		Field:      field,
		Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
		Suggestion: "Check gcpsecrets.yaml against the supported keys and types",
	}
}

func (s *Settings) applyDefaults() {
	if s.Backend == "" {
		s.Backend = BackendGCP
	}
	if s.Cache == nil {
		enabled := true
		s.Cache = &enabled
	}
	if s.CacheTTLSeconds == nil {
		ttl := defaultCacheTTLSeconds
		s.CacheTTLSeconds = &ttl
	}
	if s.TimeoutMs <= 0 {
		s.TimeoutMs = defaultTimeoutMs
	}
}

// Apply merges command-line overrides into loaded settings.
func (s *Settings) Apply(o Overrides) error {
	if o.Backend != nil && *o.Backend != "" {
		switch *o.Backend {
		case BackendGCP, BackendAWS, BackendAWSSSM, BackendAzure:
			s.Backend = *o.Backend
		default:
			return dserrors.ConfigError{
				Field:      "backend",
				Value:      *o.Backend,
				Message:    "unknown backend",
				Suggestion: fmt.Sprintf("Use one of: %s", strings.Join(Backends(), ", ")),
			}
		}
	}
	if o.Project != nil && *o.Project != "" {
		s.Project = *o.Project
	}
	if o.Cache != nil {
		enabled := *o.Cache
		s.Cache = &enabled
	}
	if o.CacheTTL != nil {
		if *o.CacheTTL < 0 {
			return dserrors.ConfigError{
				Field:      "cache_ttl",
				Value:      o.CacheTTL.String(),
				Message:    "cache TTL must not be negative",
				Suggestion: "Use 0 to cache for the lifetime of the process",
			}
		}
		ttl := *o.CacheTTL
		s.cacheTTL = &ttl
		seconds := int(ttl / time.Second)
		s.CacheTTLSeconds = &seconds
	}
	if o.Seal != nil {
		s.SealCache = *o.Seal
	}
	return nil
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendGCP, BackendAWS, BackendAWSSSM, BackendAzure}
}

// CacheEnabled reports whether lookups are cached.
func (s *Settings) CacheEnabled() bool {
	return s.Cache == nil || *s.Cache
}

// CacheTTL returns the latest-version cache expiry. Zero caches forever.
func (s *Settings) CacheTTL() time.Duration {
	if s.cacheTTL != nil {
		return *s.cacheTTL
	}
	if s.CacheTTLSeconds == nil {
		return defaultCacheTTLSeconds * time.Second
	}
	return time.Duration(*s.CacheTTLSeconds) * time.Second
}

// Timeout bounds a single command.
func (s *Settings) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return defaultTimeoutMs * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}
