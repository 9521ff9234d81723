package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/logging"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// AzureKeyVaultAPI defines the Key Vault operations used here. The real
// *azsecrets.Client is adapted to it by azureAPI.
type AzureKeyVaultAPI interface {
	NewListSecretPropertiesVersionsPager(name string, options *azsecrets.ListSecretPropertiesVersionsOptions) SecretVersionsPager
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// SecretVersionsPager pages through the versions of one secret.
// *runtime.Pager[azsecrets.ListSecretPropertiesVersionsResponse] satisfies it.
type SecretVersionsPager = interface {
	More() bool
	NextPage(ctx context.Context) (azsecrets.ListSecretPropertiesVersionsResponse, error)
}

// AzureConfig holds Azure Key Vault-specific configuration. The store's
// project is the vault name or URL.
type AzureConfig struct {
	TenantID               string
	ClientID               string
	ClientSecret           string
	UseManagedIdentity     bool
	UserAssignedIdentityID string // For user-assigned managed identity
	Logger                 *logging.Logger
}

// AzureKeyVaultClient reads secret versions from Azure Key Vault. A version
// is enabled unless its attributes say otherwise.
type AzureKeyVaultClient struct {
	config AzureConfig
	logger *logging.Logger
	getenv func(string) string
	newAPI func(vaultURL string) (AzureKeyVaultAPI, error)

	mu     sync.Mutex
	vaults map[string]AzureKeyVaultAPI
	cred   azcore.TokenCredential
}

var _ secretstore.RemoteSecretClient = (*AzureKeyVaultClient)(nil)

// AzureOption is a functional option for configuring the Azure client
type AzureOption func(*AzureKeyVaultClient)

// WithAzureKeyVaultClient sets a custom Key Vault API for every vault (for testing)
func WithAzureKeyVaultClient(api AzureKeyVaultAPI) AzureOption {
	return func(c *AzureKeyVaultClient) {
		c.newAPI = func(string) (AzureKeyVaultAPI, error) { return api, nil }
	}
}

// WithAzureEnv replaces os.Getenv for vault discovery (for testing)
func WithAzureEnv(getenv func(string) string) AzureOption {
	return func(c *AzureKeyVaultClient) {
		c.getenv = getenv
	}
}

// NewAzureKeyVaultClient creates a Key Vault client. Vault clients and the
// credential are created on first use.
func NewAzureKeyVaultClient(config AzureConfig, opts ...AzureOption) *AzureKeyVaultClient {
	c := &AzureKeyVaultClient{
		config: config,
		logger: config.Logger,
		getenv: os.Getenv,
		vaults: make(map[string]AzureKeyVaultAPI),
	}
	if c.logger == nil {
		c.logger = logging.NewWithWriter(nil, false, true)
	}
	c.newAPI = c.createAPI

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// createAPI creates an Azure Key Vault client with appropriate authentication
func (c *AzureKeyVaultClient) createAPI(vaultURL string) (AzureKeyVaultAPI, error) {
	if c.cred == nil {
		cred, err := c.credential()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		c.cred = cred
	}

	client, err := azsecrets.NewClient(vaultURL, c.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return azureAPI{client: client}, nil
}

func (c *AzureKeyVaultClient) credential() (azcore.TokenCredential, error) {
	switch {
	case c.config.UseManagedIdentity && c.config.UserAssignedIdentityID != "":
		return azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(c.config.UserAssignedIdentityID),
		})
	case c.config.UseManagedIdentity:
		return azidentity.NewManagedIdentityCredential(nil)
	case c.config.ClientSecret != "":
		return azidentity.NewClientSecretCredential(c.config.TenantID, c.config.ClientID, c.config.ClientSecret, nil)
	default:
		// Azure CLI, environment, workload identity, ...
		return azidentity.NewDefaultAzureCredential(nil)
	}
}

func (c *AzureKeyVaultClient) vault(project string) (AzureKeyVaultAPI, error) {
	vaultURL, err := VaultURL(project)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if api, ok := c.vaults[vaultURL]; ok {
		return api, nil
	}
	api, err := c.newAPI(vaultURL)
	if err != nil {
		return nil, err
	}
	c.vaults[vaultURL] = api
	c.logger.Debug("Created Key Vault client for %s", vaultURL)
	return api, nil
}

// VaultURL turns a vault name into its URL. URLs pass through.
func VaultURL(project string) (string, error) {
	if !strings.Contains(project, "://") {
		return fmt.Sprintf("https://%s.vault.azure.net/", project), nil
	}
	u, err := url.Parse(project)
	if err != nil || u.Host == "" {
		return "", dserrors.ConfigError{
			Field:      "project",
			Value:      project,
			Message:    "invalid Key Vault URL",
			Suggestion: "Use a vault name or https://vault-name.vault.azure.net/",
		}
	}
	return project, nil
}

// ListVersions lists every version of a secret
func (c *AzureKeyVaultClient) ListVersions(ctx context.Context, project, name string) ([]secretstore.VersionMetadata, error) {
	api, err := c.vault(project)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Listing Key Vault secret versions: %s", name)
	pager := api.NewListSecretPropertiesVersionsPager(name, nil)

	var versions []secretstore.VersionMetadata
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translateAzureError(err)
		}
		for _, props := range page.Value {
			if props == nil || props.ID == nil {
				continue
			}
			meta := secretstore.VersionMetadata{
				Version: props.ID.Version(),
				State:   secretstore.StateEnabled,
			}
			if attrs := props.Attributes; attrs != nil {
				if attrs.Enabled != nil && !*attrs.Enabled {
					meta.State = secretstore.StateDisabled
				}
				if attrs.Created != nil {
					meta.CreateTime = *attrs.Created
				}
			}
			versions = append(versions, meta)
		}
	}
	return versions, nil
}

// FetchPayload reads one version
func (c *AzureKeyVaultClient) FetchPayload(ctx context.Context, project, name, version string) ([]byte, error) {
	api, err := c.vault(project)
	if err != nil {
		return nil, err
	}

	resp, err := api.GetSecret(ctx, name, version, nil)
	if err != nil {
		return nil, translateAzureError(err)
	}
	if resp.Value == nil {
		return []byte{}, nil
	}
	return []byte(*resp.Value), nil
}

// DefaultProject returns AZURE_KEYVAULT_URL or AZURE_KEYVAULT_NAME
func (c *AzureKeyVaultClient) DefaultProject(ctx context.Context) (string, error) {
	if vaultURL := c.getenv("AZURE_KEYVAULT_URL"); vaultURL != "" {
		return vaultURL, nil
	}
	return c.getenv("AZURE_KEYVAULT_NAME"), nil
}

// Identity describes the configured credential
func (c *AzureKeyVaultClient) Identity(ctx context.Context) (string, error) {
	switch {
	case c.config.UseManagedIdentity && c.config.UserAssignedIdentityID != "":
		return "managed identity " + c.config.UserAssignedIdentityID, nil
	case c.config.UseManagedIdentity:
		return "system-assigned managed identity", nil
	case c.config.ClientSecret != "":
		return fmt.Sprintf("service principal %s (tenant %s)", c.config.ClientID, c.config.TenantID), nil
	default:
		return "default Azure credential chain", nil
	}
}

// Close is a no-op; the SDK clients share an HTTP pipeline that needs no closing
func (c *AzureKeyVaultClient) Close() error {
	return nil
}

func translateAzureError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", secretstore.ErrRemoteNotFound, err)
	}
	return err
}

type azureAPI struct {
	client *azsecrets.Client
}

func (a azureAPI) NewListSecretPropertiesVersionsPager(name string, options *azsecrets.ListSecretPropertiesVersionsOptions) SecretVersionsPager {
	return a.client.NewListSecretPropertiesVersionsPager(name, options)
}

func (a azureAPI) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	return a.client.GetSecret(ctx, name, version, options)
}
