package providers_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/providers"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"github.com/systmms/gcpsecrets/tests/fakes"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

const (
	kvOld      = "0b5e3c1f9a7d4e2b8c6a1d3f5e7b9c0a"
	kvCurrent  = "7c9d2e4f6a8b0c1d3e5f7a9b1c3d5e7f"
	kvDisabled = "f1e2d3c4b5a697887766554433221100"
)

func seededKeyVault() *fakes.FakeAzureKeyVaultClient {
	sdk := fakes.NewFakeAzureKeyVaultClient()
	sdk.AddSecretVersion("db-password", kvOld, "old", nil, t0)
	sdk.AddSecretVersion("db-password", kvCurrent, "new", to.Ptr(true), t0.Add(time.Hour))
	sdk.AddSecretVersion("db-password", kvDisabled, "revoked", to.Ptr(false), t0.Add(2*time.Hour))
	return sdk
}

func TestAzureKeyVaultClientContract(t *testing.T) {
	t.Parallel()

	client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
		providers.WithAzureKeyVaultClient(seededKeyVault()))

	testutil.RunClientContractTests(t, testutil.ClientTestCase{
		Name:     "azure",
		Client:   client,
		Project:  "test-vault",
		Secret:   "db-password",
		Payloads: map[string]string{kvOld: "old", kvCurrent: "new"},
		Inactive: []string{kvDisabled},
		Latest:   kvCurrent,
	})
}

func TestAzureKeyVaultClient_ListVersions(t *testing.T) {
	t.Parallel()

	client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
		providers.WithAzureKeyVaultClient(seededKeyVault()))

	versions, err := client.ListVersions(context.Background(), "test-vault", "db-password")
	require.NoError(t, err)
	require.Len(t, versions, 3)

	want := map[string]secretstore.VersionState{
		kvOld:      secretstore.StateEnabled,
		kvCurrent:  secretstore.StateEnabled,
		kvDisabled: secretstore.StateDisabled,
	}
	for _, v := range versions {
		assert.Equal(t, want[v.Version], v.State, "version %s", v.Version)
	}
}

func TestAzureKeyVaultClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound bool
		status   int
	}{
		{"forbidden", fakes.AzureForbiddenError("caller lacks secrets/get"), false, http.StatusForbidden},
		{"unauthorized", fakes.AzureUnauthorizedError("token expired"), false, http.StatusUnauthorized},
		{"not found", fakes.AzureNotFoundError("db-password"), true, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sdk := seededKeyVault()
			sdk.AddError("db-password", tt.err)
			client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
				providers.WithAzureKeyVaultClient(sdk))

			for _, call := range []func() error{
				func() error {
					_, err := client.ListVersions(context.Background(), "test-vault", "db-password")
					return err
				},
				func() error {
					_, err := client.FetchPayload(context.Background(), "test-vault", "db-password", kvCurrent)
					return err
				},
			} {
				err := call()
				require.Error(t, err)
				assert.Equal(t, tt.notFound, errors.Is(err, secretstore.ErrRemoteNotFound))

				var respErr *azcore.ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, tt.status, respErr.StatusCode)
			}
		})
	}
}

func TestAzureKeyVaultClient_DisabledVersion(t *testing.T) {
	t.Parallel()

	client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
		providers.WithAzureKeyVaultClient(seededKeyVault()))

	ctx := context.Background()
	store, err := secretstore.New(ctx, client, secretstore.WithProject("test-vault"))
	require.NoError(t, err)

	_, err = store.Get(ctx, secretstore.Version("db-password", kvDisabled))
	var remoteErr secretstore.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "access", remoteErr.Op)
}

func TestVaultURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		project string
		want    string
		wantErr bool
	}{
		{"my-vault", "https://my-vault.vault.azure.net/", false},
		{"https://my-vault.vault.azure.net/", "https://my-vault.vault.azure.net/", false},
		{"https://my-vault.vault.usgovcloudapi.net/", "https://my-vault.vault.usgovcloudapi.net/", false},
		{"https://", "", true},
		{"://bad", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			t.Parallel()

			got, err := providers.VaultURL(tt.project)
			if tt.wantErr {
				var cfgErr dserrors.ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "project", cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAzureKeyVaultClient_VaultNameOrURL(t *testing.T) {
	t.Parallel()

	sdk := seededKeyVault()
	client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
		providers.WithAzureKeyVaultClient(sdk))

	ctx := context.Background()
	_, err := client.ListVersions(ctx, "test-vault", "db-password")
	require.NoError(t, err)
	_, err = client.ListVersions(ctx, "https://test-vault.vault.azure.net/", "db-password")
	require.NoError(t, err)

	_, err = client.ListVersions(ctx, "https://", "db-password")
	var cfgErr dserrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, sdk.CallCount("NewListSecretPropertiesVersionsPager"))
}

func TestAzureKeyVaultClient_DefaultProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "url wins",
			env:  map[string]string{"AZURE_KEYVAULT_URL": "https://a.vault.azure.net/", "AZURE_KEYVAULT_NAME": "b"},
			want: "https://a.vault.azure.net/",
		},
		{
			name: "name",
			env:  map[string]string{"AZURE_KEYVAULT_NAME": "b"},
			want: "b",
		},
		{
			name: "unset",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := providers.NewAzureKeyVaultClient(providers.AzureConfig{},
				providers.WithAzureKeyVaultClient(fakes.NewFakeAzureKeyVaultClient()),
				providers.WithAzureEnv(func(k string) string { return tt.env[k] }),
			)
			got, err := client.DefaultProject(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAzureKeyVaultClient_Identity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config providers.AzureConfig
		want   string
	}{
		{"user-assigned", providers.AzureConfig{UseManagedIdentity: true, UserAssignedIdentityID: "abc"}, "managed identity abc"},
		{"system-assigned", providers.AzureConfig{UseManagedIdentity: true}, "system-assigned managed identity"},
		{"service principal", providers.AzureConfig{TenantID: "t", ClientID: "c", ClientSecret: "s"}, "service principal c (tenant t)"},
		{"default chain", providers.AzureConfig{}, "default Azure credential chain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := providers.NewAzureKeyVaultClient(tt.config)
			got, err := client.Identity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAzureKeyVaultLive reads a real secret.
//
// This test requires:
// - Azure credentials resolvable by DefaultAzureCredential with secrets/list and secrets/get
// - GCPSECRETS_TEST_AZURE=vault/secret naming an existing secret
func TestAzureKeyVaultLive(t *testing.T) {
	target, exists := os.LookupEnv("GCPSECRETS_TEST_AZURE")
	if !exists {
		t.Skip("Skipping Azure Key Vault integration test. Set GCPSECRETS_TEST_AZURE=vault/secret to run.")
	}
	vault, name := splitTarget(t, target)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := providers.NewAzureKeyVaultClient(providers.AzureConfig{})
	store, err := secretstore.New(ctx, client, secretstore.WithProject(vault))
	require.NoError(t, err)

	ok, err := store.Contains(ctx, secretstore.Latest(name))
	require.NoError(t, err)
	assert.True(t, ok)
}
