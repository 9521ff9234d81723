package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// stagePending labels a version mid-rotation that is not yet live.
const stagePending = "AWSPENDING"

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	ListSecretVersionIds(ctx context.Context, params *secretsmanager.ListSecretVersionIdsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretVersionIdsOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManagerClient reads secret versions from AWS Secrets Manager.
// Projects are regions. A version counts as enabled while it carries a
// staging label other than AWSPENDING.
type AWSSecretsManagerClient struct {
	session *awsSession[SecretsManagerClientAPI]
}

var _ secretstore.RemoteSecretClient = (*AWSSecretsManagerClient)(nil)

// NewAWSSecretsManagerClient creates a Secrets Manager client. SDK clients
// are created per region on first use.
func NewAWSSecretsManagerClient(config AWSConfig, opts ...AWSOption) *AWSSecretsManagerClient {
	endpoint := config.Endpoint
	s := newAWSSession(config, func(cfg aws.Config) SecretsManagerClientAPI {
		return secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
	})
	applyAWSOptions(s, opts, func(o awsOptions) (SecretsManagerClientAPI, bool) {
		return o.secretsManager, o.secretsManager != nil
	})
	return &AWSSecretsManagerClient{session: s}
}

// ListVersions lists every version of a secret, including deprecated ones
func (c *AWSSecretsManagerClient) ListVersions(ctx context.Context, region, name string) ([]secretstore.VersionMetadata, error) {
	client, err := c.session.client(ctx, region)
	if err != nil {
		return nil, err
	}

	c.session.logger.Debug("Listing AWS secret versions: %s in %s", name, region)
	paginator := secretsmanager.NewListSecretVersionIdsPaginator(client, &secretsmanager.ListSecretVersionIdsInput{
		SecretId:          aws.String(name),
		IncludeDeprecated: aws.Bool(true),
	})

	var versions []secretstore.VersionMetadata
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translateSecretsManagerError(err)
		}
		for _, entry := range page.Versions {
			versions = append(versions, secretstore.VersionMetadata{
				Version:    aws.ToString(entry.VersionId),
				State:      stagingState(entry.VersionStages),
				CreateTime: aws.ToTime(entry.CreatedDate),
			})
		}
	}
	return versions, nil
}

// FetchPayload reads one version. Binary secrets are returned as-is.
func (c *AWSSecretsManagerClient) FetchPayload(ctx context.Context, region, name, version string) ([]byte, error) {
	client, err := c.session.client(ctx, region)
	if err != nil {
		return nil, err
	}

	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:  aws.String(name),
		VersionId: aws.String(version),
	})
	if err != nil {
		return nil, translateSecretsManagerError(err)
	}

	if result.SecretString != nil {
		return []byte(*result.SecretString), nil
	}
	if result.SecretBinary != nil {
		return result.SecretBinary, nil
	}
	return []byte{}, nil
}

// DefaultProject returns the region from the environment or shared config
func (c *AWSSecretsManagerClient) DefaultProject(ctx context.Context) (string, error) {
	return c.session.defaultRegion(ctx)
}

// Identity returns the caller ARN from STS
func (c *AWSSecretsManagerClient) Identity(ctx context.Context) (string, error) {
	return c.session.identity(ctx)
}

// Close is a no-op; the SDK clients hold no connections that need closing
func (c *AWSSecretsManagerClient) Close() error {
	return nil
}

func stagingState(stages []string) secretstore.VersionState {
	for _, stage := range stages {
		if stage != stagePending {
			return secretstore.StateEnabled
		}
	}
	return secretstore.StateDisabled
}

func translateSecretsManagerError(err error) error {
	var resourceNotFound *types.ResourceNotFoundException
	if errors.As(err, &resourceNotFound) {
		return fmt.Errorf("%w: %w", secretstore.ErrRemoteNotFound, err)
	}
	return err
}
