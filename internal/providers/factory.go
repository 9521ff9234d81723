package providers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/systmms/gcpsecrets/internal/config"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/internal/logging"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// Client is a remote secret client that holds resources until closed.
type Client interface {
	secretstore.RemoteSecretClient
	io.Closer
}

// Identifier is implemented by clients that can name the principal they
// authenticate as.
type Identifier interface {
	Identity(ctx context.Context) (string, error)
}

// New creates the client for the configured backend.
func New(ctx context.Context, settings *config.Settings, logger *logging.Logger) (Client, error) {
	switch settings.Backend {
	case "", config.BackendGCP:
		gcp := GCPConfig{
			ServiceAccountKeyPath:     settings.GCP.ServiceAccountKeyPath,
			ImpersonateServiceAccount: settings.GCP.ImpersonateServiceAccount,
			Endpoint:                  settings.GCP.Endpoint,
			Logger:                    logger,
		}
		if ref := settings.GCP.CredentialsKeyring; ref != nil {
			gcp.KeyringService = ref.Service
			gcp.KeyringUser = ref.User
		}
		client, err := NewGCPSecretManagerClient(ctx, gcp)
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.BackendAWS:
		return NewAWSSecretsManagerClient(awsConfig(settings, logger)), nil

	case config.BackendAWSSSM:
		return NewAWSSSMClient(awsConfig(settings, logger)), nil

	case config.BackendAzure:
		return NewAzureKeyVaultClient(AzureConfig{
			TenantID:               settings.Azure.TenantID,
			ClientID:               settings.Azure.ClientID,
			ClientSecret:           settings.Azure.ClientSecret,
			UseManagedIdentity:     settings.Azure.UseManagedIdentity,
			UserAssignedIdentityID: settings.Azure.UserAssignedIdentityID,
			Logger:                 logger,
		}), nil
	}

	return nil, dserrors.ConfigError{
		Field:      "backend",
		Value:      settings.Backend,
		Message:    fmt.Sprintf("unknown backend: %s", settings.Backend),
		Suggestion: fmt.Sprintf("Use one of: %s", strings.Join(config.Backends(), ", ")),
	}
}

func awsConfig(settings *config.Settings, logger *logging.Logger) AWSConfig {
	return AWSConfig{
		Endpoint:        settings.AWS.Endpoint,
		AccessKeyID:     settings.AWS.AccessKeyID,
		SecretAccessKey: settings.AWS.SecretAccessKey,
		Logger:          logger,
	}
}
