package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/systmms/gcpsecrets/internal/logging"
)

// AWSConfig holds settings shared by the Secrets Manager and SSM clients.
// The store's project is the AWS region.
type AWSConfig struct {
	Endpoint        string // Optional custom endpoint for LocalStack or testing
	AccessKeyID     string
	SecretAccessKey string
	Logger          *logging.Logger
}

// STSClientAPI is the STS call used to report the caller identity
type STSClientAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// awsSession loads per-region SDK configs and caches one service client per
// region.
type awsSession[T any] struct {
	config AWSConfig
	logger *logging.Logger

	loadConfig func(ctx context.Context, region string) (aws.Config, error)
	findRegion func(ctx context.Context) (string, error)
	newClient  func(cfg aws.Config) T
	stsClient  STSClientAPI

	mu      sync.Mutex
	clients map[string]T
}

func newAWSSession[T any](config AWSConfig, newClient func(aws.Config) T) *awsSession[T] {
	s := &awsSession[T]{
		config:    config,
		logger:    config.Logger,
		newClient: newClient,
		clients:   make(map[string]T),
	}
	if s.logger == nil {
		s.logger = logging.NewWithWriter(nil, false, true)
	}
	s.loadConfig = s.loadDefaultConfig
	s.findRegion = func(ctx context.Context) (string, error) {
		cfg, err := s.loadConfig(ctx, "")
		if err != nil {
			return "", err
		}
		return cfg.Region, nil
	}
	return s
}

func (s *awsSession[T]) loadDefaultConfig(ctx context.Context, region string) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error
	if region != "" {
		configOpts = append(configOpts, config.WithRegion(region))
	}

	// Use static credentials if provided (for LocalStack/testing)
	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.config.AccessKeyID, s.config.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// client returns the cached client for region, creating it on first use.
func (s *awsSession[T]) client(ctx context.Context, region string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[region]; ok {
		return c, nil
	}

	cfg, err := s.loadConfig(ctx, region)
	if err != nil {
		var zero T
		return zero, err
	}
	c := s.newClient(cfg)
	s.clients[region] = c
	s.logger.Debug("Created AWS client for region %s", region)
	return c, nil
}

// defaultRegion resolves the region from the environment and shared config.
func (s *awsSession[T]) defaultRegion(ctx context.Context) (string, error) {
	return s.findRegion(ctx)
}

// identity returns the ARN of the caller.
func (s *awsSession[T]) identity(ctx context.Context) (string, error) {
	s.mu.Lock()
	client := s.stsClient
	s.mu.Unlock()

	if client == nil {
		cfg, err := s.loadConfig(ctx, "")
		if err != nil {
			return "", err
		}
		if cfg.Region == "" {
			cfg.Region = "us-east-1"
		}
		client = sts.NewFromConfig(cfg)

		s.mu.Lock()
		s.stsClient = client
		s.mu.Unlock()
	}

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(out.Arn), nil
}

// pinClient makes every region use client without loading any AWS config.
func (s *awsSession[T]) pinClient(client T) {
	s.newClient = func(aws.Config) T { return client }
	s.loadConfig = func(_ context.Context, region string) (aws.Config, error) {
		return aws.Config{Region: region}, nil
	}
}

// AWSOption is a functional option for configuring the AWS clients
type AWSOption func(*awsOptions)

type awsOptions struct {
	secretsManager SecretsManagerClientAPI
	ssm            SSMClientAPI
	sts            STSClientAPI
	region         *string
}

// WithSecretsManagerClient sets a custom Secrets Manager client for every region (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSOption {
	return func(o *awsOptions) {
		o.secretsManager = client
	}
}

// WithSSMClient sets a custom SSM client for every region (for testing)
func WithSSMClient(client SSMClientAPI) AWSOption {
	return func(o *awsOptions) {
		o.ssm = client
	}
}

// WithSTSClient sets a custom STS client (for testing)
func WithSTSClient(client STSClientAPI) AWSOption {
	return func(o *awsOptions) {
		o.sts = client
	}
}

// WithDefaultRegion fixes the region reported by DefaultProject
func WithDefaultRegion(region string) AWSOption {
	return func(o *awsOptions) {
		o.region = &region
	}
}

func applyAWSOptions[T any](s *awsSession[T], opts []AWSOption, pinned func(awsOptions) (T, bool)) {
	var o awsOptions
	for _, opt := range opts {
		opt(&o)
	}
	if client, ok := pinned(o); ok {
		s.pinClient(client)
	}
	if o.sts != nil {
		s.stsClient = o.sts
	}
	if o.region != nil {
		region := *o.region
		s.findRegion = func(context.Context) (string, error) { return region, nil }
	}
}
