// Package fakes provides test doubles for the secret store and its providers.
//
// FakeRemoteClient implements secretstore.RemoteSecretClient in memory and
// drives the store's resolver and cache tests. The SDK fakes
// (FakeGCPSecretManagerClient, FakeSecretsManagerClient, FakeSSMClient,
// FakeAzureKeyVaultClient) implement the narrow API interfaces each provider
// in internal/providers wraps its SDK behind.
//
// Fakes are written by hand, not generated, so tests control exactly which
// versions exist and which calls fail:
//
//	sdk := fakes.NewFakeGCPSecretManagerClient()
//	sdk.AddSecretVersion("proj", "db", "1", secretmanagerpb.SecretVersion_ENABLED, t0, []byte("v1"))
//	client, err := providers.NewGCPSecretManagerClient(ctx, providers.GCPConfig{}, providers.WithGCPAPI(sdk))
package fakes
