package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/logging"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerAPI is the subset of the Secret Manager client used here.
// *secretmanager.Client is adapted to it by gcpAPI; tests use
// fakes.FakeGCPSecretManagerClient.
type GCPSecretManagerAPI interface {
	ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) SecretVersionIterator
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// SecretVersionIterator yields versions until iterator.Done.
type SecretVersionIterator = interface {
	Next() (*secretmanagerpb.SecretVersion, error)
}

// GCPConfig holds GCP Secret Manager-specific configuration
type GCPConfig struct {
	ServiceAccountKeyPath     string
	ImpersonateServiceAccount string
	KeyringService            string // OS keyring item holding a service-account JSON key
	KeyringUser               string
	Endpoint                  string
	Logger                    *logging.Logger
}

// CredentialsFinder locates Application Default Credentials.
type CredentialsFinder func(ctx context.Context, scopes ...string) (*google.Credentials, error)

// GCPSecretManagerClient reads secret versions from Google Cloud Secret
// Manager. It implements secretstore.RemoteSecretClient.
type GCPSecretManagerClient struct {
	api             GCPSecretManagerAPI
	config          GCPConfig
	logger          *logging.Logger
	findCredentials CredentialsFinder
	getenv          func(string) string

	keyringOnce sync.Once
	keyringData []byte
	keyringErr  error
}

var _ secretstore.RemoteSecretClient = (*GCPSecretManagerClient)(nil)

// GCPOption is a functional option for configuring the GCP client
type GCPOption func(*GCPSecretManagerClient)

// WithGCPAPI sets a custom Secret Manager API (for testing)
func WithGCPAPI(api GCPSecretManagerAPI) GCPOption {
	return func(c *GCPSecretManagerClient) {
		c.api = api
	}
}

// WithCredentialsFinder replaces google.FindDefaultCredentials (for testing)
func WithCredentialsFinder(find CredentialsFinder) GCPOption {
	return func(c *GCPSecretManagerClient) {
		c.findCredentials = find
	}
}

// WithGCPEnv replaces os.Getenv for project discovery (for testing)
func WithGCPEnv(getenv func(string) string) GCPOption {
	return func(c *GCPSecretManagerClient) {
		c.getenv = getenv
	}
}

// NewGCPSecretManagerClient creates a Secret Manager client. Credentials come
// from the key file, the keyring, or Application Default Credentials, in that
// order; impersonation applies on top of whichever is used.
func NewGCPSecretManagerClient(ctx context.Context, config GCPConfig, opts ...GCPOption) (*GCPSecretManagerClient, error) {
	c := &GCPSecretManagerClient{
		config:          config,
		logger:          config.Logger,
		findCredentials: google.FindDefaultCredentials,
		getenv:          os.Getenv,
	}
	if c.logger == nil {
		c.logger = logging.NewWithWriter(nil, false, true)
	}

	if config.ServiceAccountKeyPath != "" {
		path, err := expandHome(config.ServiceAccountKeyPath)
		if err != nil {
			return nil, err
		}
		c.config.ServiceAccountKeyPath = path
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.api == nil {
		api, err := c.createAPI(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		c.api = api
	}

	return c, nil
}

func (c *GCPSecretManagerClient) createAPI(ctx context.Context) (GCPSecretManagerAPI, error) {
	var clientOptions []option.ClientOption

	switch {
	case c.config.ServiceAccountKeyPath != "":
		clientOptions = append(clientOptions, option.WithCredentialsFile(c.config.ServiceAccountKeyPath))
	case c.config.KeyringService != "":
		data, err := c.keyringCredentials()
		if err != nil {
			return nil, err
		}
		clientOptions = append(clientOptions, option.WithCredentialsJSON(data))
	}

	if c.config.ImpersonateServiceAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: c.config.ImpersonateServiceAccount,
			Scopes:          secretmanager.DefaultAuthScopes(),
		}, clientOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = []option.ClientOption{option.WithTokenSource(ts)}
	}

	if c.config.Endpoint != "" {
		clientOptions = append(clientOptions, option.WithEndpoint(c.config.Endpoint))
	}

	client, err := secretmanager.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, err
	}
	return gcpAPI{client: client}, nil
}

// ListVersions lists every version of a secret
func (c *GCPSecretManagerClient) ListVersions(ctx context.Context, project, name string) ([]secretstore.VersionMetadata, error) {
	parent := fmt.Sprintf("projects/%s/secrets/%s", project, name)
	c.logger.Debug("Listing GCP secret versions: %s", parent)

	it := c.api.ListSecretVersions(ctx, &secretmanagerpb.ListSecretVersionsRequest{Parent: parent})

	var versions []secretstore.VersionMetadata
	for {
		v, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, translateGCPError(err)
		}
		meta := secretstore.VersionMetadata{
			Version: versionFromName(v.GetName()),
			State:   gcpState(v.GetState()),
		}
		if v.GetCreateTime() != nil {
			meta.CreateTime = v.GetCreateTime().AsTime()
		}
		versions = append(versions, meta)
	}
	return versions, nil
}

// FetchPayload reads the payload of one version
func (c *GCPSecretManagerClient) FetchPayload(ctx context.Context, project, name, version string) ([]byte, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version)
	c.logger.Debug("Accessing GCP secret: %s", resourceName)

	result, err := c.api.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resourceName})
	if err != nil {
		return nil, translateGCPError(err)
	}
	if result.GetPayload() == nil {
		return []byte{}, nil
	}
	return result.GetPayload().GetData(), nil
}

// DefaultProject returns the project from the environment, the configured
// credentials, or Application Default Credentials.
func (c *GCPSecretManagerClient) DefaultProject(ctx context.Context) (string, error) {
	for _, env := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if projectID := c.getenv(env); projectID != "" {
			return projectID, nil
		}
	}

	if data, err := c.credentialsData(); err != nil {
		return "", err
	} else if len(data) > 0 {
		if key := parseServiceAccountKey(data); key.ProjectID != "" {
			return key.ProjectID, nil
		}
	}

	creds, err := c.findCredentials(ctx, secretmanager.DefaultAuthScopes()...)
	if err != nil {
		c.logger.Debug("No Application Default Credentials: %v", err)
		return "", nil
	}
	return creds.ProjectID, nil
}

// Identity describes the principal requests are made as.
func (c *GCPSecretManagerClient) Identity(ctx context.Context) (string, error) {
	if c.config.ImpersonateServiceAccount != "" {
		return "impersonating " + c.config.ImpersonateServiceAccount, nil
	}
	data, err := c.credentialsData()
	if err != nil {
		return "", err
	}
	if key := parseServiceAccountKey(data); key.ClientEmail != "" {
		return key.ClientEmail, nil
	}
	return "application default credentials", nil
}

// Close releases the underlying gRPC connection
func (c *GCPSecretManagerClient) Close() error {
	return c.api.Close()
}

func (c *GCPSecretManagerClient) credentialsData() ([]byte, error) {
	if c.config.ServiceAccountKeyPath != "" {
		data, err := os.ReadFile(c.config.ServiceAccountKeyPath)
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "Failed to read service account key file",
				Details:    err.Error(),
				Suggestion: "Check gcp.service_account_key_path",
				Err:        err,
			}
		}
		return data, nil
	}
	if c.config.KeyringService != "" {
		return c.keyringCredentials()
	}
	return nil, nil
}

// keyringCredentials reads the service-account JSON from the OS keyring once.
func (c *GCPSecretManagerClient) keyringCredentials() ([]byte, error) {
	c.keyringOnce.Do(func() {
		secret, err := keyring.Get(c.config.KeyringService, c.config.KeyringUser)
		if err != nil {
			c.keyringErr = dserrors.ConfigError{
				Field:      "gcp.credentials_keyring",
				Value:      c.config.KeyringService + "/" + c.config.KeyringUser,
				Message:    fmt.Sprintf("failed to read credentials from keyring: %v", err),
				Suggestion: "Store the service-account JSON key in the OS keyring under this service and user",
			}
			return
		}
		c.keyringData = []byte(secret)
	})
	return c.keyringData, c.keyringErr
}

type serviceAccountKey struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

func parseServiceAccountKey(data []byte) serviceAccountKey {
	var key serviceAccountKey
	if len(data) > 0 {
		_ = json.Unmarshal(data, &key)
	}
	return key
}

func translateGCPError(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %w", secretstore.ErrRemoteNotFound, err)
	}
	return err
}

func gcpState(state secretmanagerpb.SecretVersion_State) secretstore.VersionState {
	switch state {
	case secretmanagerpb.SecretVersion_ENABLED:
		return secretstore.StateEnabled
	case secretmanagerpb.SecretVersion_DISABLED:
		return secretstore.StateDisabled
	case secretmanagerpb.SecretVersion_DESTROYED:
		return secretstore.StateDestroyed
	default:
		return secretstore.StateUnspecified
	}
}

// versionFromName returns the last path segment of
// projects/P/secrets/S/versions/V.
func versionFromName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

type gcpAPI struct {
	client *secretmanager.Client
}

func (a gcpAPI) ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) SecretVersionIterator {
	return a.client.ListSecretVersions(ctx, req)
}

func (a gcpAPI) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.client.AccessSecretVersion(ctx, req)
}

func (a gcpAPI) Close() error {
	return a.client.Close()
}
