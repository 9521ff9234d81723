package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// SSMClientAPI defines the interface for SSM Parameter Store operations
type SSMClientAPI interface {
	GetParameterHistory(ctx context.Context, params *ssm.GetParameterHistoryInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterHistoryOutput, error)
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSSSMClient reads parameter versions from SSM Parameter Store. Projects
// are regions and every version in the history is enabled.
type AWSSSMClient struct {
	session *awsSession[SSMClientAPI]
}

var _ secretstore.RemoteSecretClient = (*AWSSSMClient)(nil)

// NewAWSSSMClient creates a Parameter Store client
func NewAWSSSMClient(config AWSConfig, opts ...AWSOption) *AWSSSMClient {
	endpoint := config.Endpoint
	s := newAWSSession(config, func(cfg aws.Config) SSMClientAPI {
		return ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
	})
	applyAWSOptions(s, opts, func(o awsOptions) (SSMClientAPI, bool) {
		return o.ssm, o.ssm != nil
	})
	return &AWSSSMClient{session: s}
}

// ListVersions lists the parameter's history
func (c *AWSSSMClient) ListVersions(ctx context.Context, region, name string) ([]secretstore.VersionMetadata, error) {
	client, err := c.session.client(ctx, region)
	if err != nil {
		return nil, err
	}

	c.session.logger.Debug("Listing SSM parameter history: %s in %s", name, region)
	paginator := ssm.NewGetParameterHistoryPaginator(client, &ssm.GetParameterHistoryInput{
		Name: aws.String(name),
	})

	var versions []secretstore.VersionMetadata
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translateSSMError(err)
		}
		for _, p := range page.Parameters {
			versions = append(versions, secretstore.VersionMetadata{
				Version:    strconv.FormatInt(p.Version, 10),
				State:      secretstore.StateEnabled,
				CreateTime: aws.ToTime(p.LastModifiedDate),
			})
		}
	}
	return versions, nil
}

// FetchPayload reads one version, decrypting SecureString values
func (c *AWSSSMClient) FetchPayload(ctx context.Context, region, name, version string) ([]byte, error) {
	client, err := c.session.client(ctx, region)
	if err != nil {
		return nil, err
	}

	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name + ":" + version),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, translateSSMError(err)
	}
	if result.Parameter == nil {
		return []byte{}, nil
	}
	return []byte(aws.ToString(result.Parameter.Value)), nil
}

// DefaultProject returns the region from the environment or shared config
func (c *AWSSSMClient) DefaultProject(ctx context.Context) (string, error) {
	return c.session.defaultRegion(ctx)
}

// Identity returns the caller ARN from STS
func (c *AWSSSMClient) Identity(ctx context.Context) (string, error) {
	return c.session.identity(ctx)
}

// Close is a no-op; the SDK clients hold no connections that need closing
func (c *AWSSSMClient) Close() error {
	return nil
}

func translateSSMError(err error) error {
	var paramNotFound *ssmtypes.ParameterNotFound
	var versionNotFound *ssmtypes.ParameterVersionNotFound
	if errors.As(err, &paramNotFound) || errors.As(err, &versionNotFound) {
		return fmt.Errorf("%w: %w", secretstore.ErrRemoteNotFound, err)
	}
	return err
}
