package fakes

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// AzureSecretVersionsPager is the pager returned by
// NewListSecretPropertiesVersionsPager. It is an alias so the fake satisfies
// providers.AzureKeyVaultAPI without importing it.
type AzureSecretVersionsPager = interface {
	More() bool
	NextPage(ctx context.Context) (azsecrets.ListSecretPropertiesVersionsResponse, error)
}

// FakeAzureKeyVaultClient is a mock implementation of the Key Vault calls
// used by providers.AzureKeyVaultClient
type FakeAzureKeyVaultClient struct {
	// VaultURL prefixes the version IDs the fake reports
	VaultURL string
	// Secrets maps secret names to their versions
	Secrets map[string][]*AzureSecretVersion
	// Errors maps secret names to errors to return
	Errors map[string]error
	// PageSize bounds version list pages
	PageSize int

	mu    sync.Mutex
	calls map[string]int
}

// AzureSecretVersion holds version-specific data for a secret
type AzureSecretVersion struct {
	Version string
	Value   *string
	Enabled *bool
	Created *time.Time
}

// NewFakeAzureKeyVaultClient creates a new mock Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		VaultURL: "https://test-vault.vault.azure.net",
		Secrets:  make(map[string][]*AzureSecretVersion),
		Errors:   make(map[string]error),
		PageSize: 2,
		calls:    make(map[string]int),
	}
}

// AddSecretVersion adds a version of a secret. A nil enabled leaves the
// attribute unset.
func (f *FakeAzureKeyVaultClient) AddSecretVersion(name, version, value string, enabled *bool, created time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = append(f.Secrets[name], &AzureSecretVersion{
		Version: version,
		Value:   to.Ptr(value),
		Enabled: enabled,
		Created: to.Ptr(created),
	})
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// CallCount returns how many times method was called
func (f *FakeAzureKeyVaultClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeAzureKeyVaultClient) id(name, version string) *azsecrets.ID {
	id := azsecrets.ID(fmt.Sprintf("%s/secrets/%s/%s", f.VaultURL, name, version))
	return &id
}

// NewListSecretPropertiesVersionsPager mocks the version listing pager
func (f *FakeAzureKeyVaultClient) NewListSecretPropertiesVersionsPager(name string, options *azsecrets.ListSecretPropertiesVersionsOptions) AzureSecretVersionsPager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["NewListSecretPropertiesVersionsPager"]++

	if err, exists := f.Errors[name]; exists {
		return &FakeAzureVersionsPager{err: err}
	}

	versions, exists := f.Secrets[name]
	if !exists {
		return &FakeAzureVersionsPager{err: AzureNotFoundError(name)}
	}

	props := make([]*azsecrets.SecretProperties, 0, len(versions))
	for _, v := range versions {
		props = append(props, &azsecrets.SecretProperties{
			ID: f.id(name, v.Version),
			Attributes: &azsecrets.SecretAttributes{
				Enabled: v.Enabled,
				Created: v.Created,
			},
		})
	}
	return &FakeAzureVersionsPager{props: props, pageSize: f.PageSize}
}

// GetSecret mocks the GetSecret operation
func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetSecret"]++

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	versions := f.Secrets[name]
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if version != "" && v.Version != version {
			continue
		}
		if v.Enabled != nil && !*v.Enabled {
			return azsecrets.GetSecretResponse{}, AzureForbiddenError(fmt.Sprintf("Operation get is not allowed on a disabled secret: %s", name))
		}
		return azsecrets.GetSecretResponse{
			Secret: azsecrets.Secret{
				ID:    f.id(name, v.Version),
				Value: v.Value,
				Attributes: &azsecrets.SecretAttributes{
					Enabled: v.Enabled,
					Created: v.Created,
				},
			},
		}, nil
	}

	return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
}

// FakeAzureVersionsPager pages through secret versions
type FakeAzureVersionsPager struct {
	props    []*azsecrets.SecretProperties
	pageSize int
	index    int
	fetched  bool
	err      error
}

// More returns true if there are more pages
func (p *FakeAzureVersionsPager) More() bool {
	if p.err != nil {
		return !p.fetched
	}
	return !p.fetched || p.index < len(p.props)
}

// NextPage returns the next page of versions
func (p *FakeAzureVersionsPager) NextPage(ctx context.Context) (azsecrets.ListSecretPropertiesVersionsResponse, error) {
	p.fetched = true
	if p.err != nil {
		return azsecrets.ListSecretPropertiesVersionsResponse{}, p.err
	}

	end := len(p.props)
	if p.pageSize > 0 && p.index+p.pageSize < end {
		end = p.index + p.pageSize
	}
	page := p.props[p.index:end]
	p.index = end

	return azsecrets.ListSecretPropertiesVersionsResponse{
		SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{
			Value: page,
		},
	}, nil
}

// AzureNotFoundError creates a mock Azure not found error
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: http.StatusNotFound,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError creates a mock Azure forbidden error
func AzureForbiddenError(message string) error {
	return &azcore.ResponseError{
		StatusCode: http.StatusForbidden,
		ErrorCode:  "Forbidden",
	}
}

// AzureUnauthorizedError creates a mock Azure unauthorized error
func AzureUnauthorizedError(message string) error {
	return &azcore.ResponseError{
		StatusCode: http.StatusUnauthorized,
		ErrorCode:  "Unauthorized",
	}
}
