package providers_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/gcpsecrets/internal/providers"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"github.com/systmms/gcpsecrets/tests/fakes"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

const (
	smPrevious = "a1b2c3d4-0000-4000-8000-000000000001"
	smCurrent  = "a1b2c3d4-0000-4000-8000-000000000002"
	smPending  = "a1b2c3d4-0000-4000-8000-000000000003"
	smOld      = "a1b2c3d4-0000-4000-8000-000000000000"
)

func seededSecretsManager() *fakes.FakeSecretsManagerClient {
	sdk := fakes.NewFakeSecretsManagerClient()
	sdk.AddSecretVersion("db", smOld, t0.Add(-time.Hour), "ancient")
	sdk.AddSecretVersion("db", smPrevious, t0, "old", "AWSPREVIOUS")
	sdk.AddSecretVersion("db", smCurrent, t0.Add(time.Hour), "new", "AWSCURRENT")
	sdk.AddSecretVersion("db", smPending, t0.Add(2*time.Hour), "rotating", "AWSPENDING")
	return sdk
}

func TestAWSSecretsManagerClientContract(t *testing.T) {
	t.Parallel()

	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
		providers.WithSecretsManagerClient(seededSecretsManager()),
		providers.WithDefaultRegion("us-east-1"),
	)

	testutil.RunClientContractTests(t, testutil.ClientTestCase{
		Name:     "aws",
		Client:   client,
		Project:  "us-east-1",
		Secret:   "db",
		Payloads: map[string]string{smPrevious: "old", smCurrent: "new"},
		Inactive: []string{smOld, smPending},
		Latest:   smCurrent,
	})
}

func TestAWSSecretsManagerClient_StagingLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stages []string
		want   secretstore.VersionState
	}{
		{"current", []string{"AWSCURRENT"}, secretstore.StateEnabled},
		{"previous", []string{"AWSPREVIOUS"}, secretstore.StateEnabled},
		{"custom label", []string{"blue"}, secretstore.StateEnabled},
		{"pending and current", []string{"AWSPENDING", "AWSCURRENT"}, secretstore.StateEnabled},
		{"pending only", []string{"AWSPENDING"}, secretstore.StateDisabled},
		{"deprecated", nil, secretstore.StateDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sdk := fakes.NewFakeSecretsManagerClient()
			sdk.AddSecretVersion("db", smCurrent, t0, "v", tt.stages...)
			client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
				providers.WithSecretsManagerClient(sdk))

			versions, err := client.ListVersions(context.Background(), "eu-west-1", "db")
			require.NoError(t, err)
			require.Len(t, versions, 1)
			assert.Equal(t, tt.want, versions[0].State)
			assert.Equal(t, t0, versions[0].CreateTime)
		})
	}
}

func TestAWSSecretsManagerClient_Pagination(t *testing.T) {
	t.Parallel()

	sdk := fakes.NewFakeSecretsManagerClient()
	sdk.PageSize = 1
	sdk.AddSecretVersion("db", smPrevious, t0, "old", "AWSPREVIOUS")
	sdk.AddSecretVersion("db", smCurrent, t0.Add(time.Hour), "new", "AWSCURRENT")
	sdk.AddSecretVersion("db", smOld, t0.Add(-time.Hour), "ancient")

	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
		providers.WithSecretsManagerClient(sdk))

	versions, err := client.ListVersions(context.Background(), "us-east-1", "db")
	require.NoError(t, err)
	assert.Len(t, versions, 3, "deprecated versions are requested too")
	assert.Equal(t, 3, sdk.CallCount("ListSecretVersionIds"))
}

func TestAWSSecretsManagerClient_BinarySecret(t *testing.T) {
	t.Parallel()

	sdk := fakes.NewFakeSecretsManagerClient()
	sdk.AddBinaryVersion("cert", smCurrent, t0, []byte{0x00, 0xff, 0x10}, "AWSCURRENT")
	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
		providers.WithSecretsManagerClient(sdk))

	data, err := client.FetchPayload(context.Background(), "us-east-1", "cert", smCurrent)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, data)
}

func TestAWSSecretsManagerClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"access denied", errors.New("AccessDeniedException: not authorized to perform secretsmanager:ListSecretVersionIds"), false},
		{"throttled", errors.New("ThrottlingException: Rate exceeded"), false},
		{"not found", &types.ResourceNotFoundException{Message: aws.String("gone")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sdk := seededSecretsManager()
			sdk.AddError("db", tt.err)
			client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
				providers.WithSecretsManagerClient(sdk))

			_, err := client.ListVersions(context.Background(), "us-east-1", "db")
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, secretstore.ErrRemoteNotFound))
			assert.ErrorIs(t, err, tt.err)

			_, err = client.FetchPayload(context.Background(), "us-east-1", "db", smCurrent)
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, secretstore.ErrRemoteNotFound))
		})
	}
}

func TestAWSSecretsManagerClient_DefaultProjectAndIdentity(t *testing.T) {
	t.Parallel()

	sts := &fakes.FakeSTSClient{
		Account: "123456789012",
		Arn:     "arn:aws:iam::123456789012:user/reader",
		UserId:  "AIDAEXAMPLE",
	}
	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
		providers.WithSecretsManagerClient(seededSecretsManager()),
		providers.WithSTSClient(sts),
		providers.WithDefaultRegion("ap-southeast-2"),
	)

	region, err := client.DefaultProject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", region)

	identity, err := client.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:user/reader", identity)

	sts.Err = errors.New("ExpiredToken: the security token included in the request is expired")
	_, err = client.Identity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get caller identity")
	assert.NoError(t, client.Close())
}

func TestAWSSecretsManagerClient_StoreAcrossRegions(t *testing.T) {
	t.Parallel()

	sdk := seededSecretsManager()
	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{},
		providers.WithSecretsManagerClient(sdk),
		providers.WithDefaultRegion("us-east-1"),
	)

	ctx := context.Background()
	store, err := secretstore.New(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", store.Project())

	value, err := store.Get(ctx, secretstore.Version("db", smPrevious))
	require.NoError(t, err)
	assert.Equal(t, "old", value)

	// Explicit versions are fetched as given, whatever their staging labels.
	value, err = store.Get(ctx, secretstore.Version("db", smPending))
	require.NoError(t, err)
	assert.Equal(t, "rotating", value)

	value, err = store.Get(ctx, secretstore.Latest("db"))
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

// TestAWSSecretsManagerLive reads a real secret.
//
// This test requires:
// - AWS credentials with secretsmanager:ListSecretVersionIds and GetSecretValue
// - GCPSECRETS_TEST_AWS=region/secret naming an existing secret
func TestAWSSecretsManagerLive(t *testing.T) {
	target, exists := os.LookupEnv("GCPSECRETS_TEST_AWS")
	if !exists {
		t.Skip("Skipping AWS Secrets Manager integration test. Set GCPSECRETS_TEST_AWS=region/secret to run.")
	}
	region, name := splitTarget(t, target)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := providers.NewAWSSecretsManagerClient(providers.AWSConfig{
		Endpoint: os.Getenv("AWS_ENDPOINT_URL"),
	})
	store, err := secretstore.New(ctx, client, secretstore.WithProject(region))
	require.NoError(t, err)

	ok, err := store.Contains(ctx, secretstore.Latest(name))
	require.NoError(t, err)
	assert.True(t, ok)
}
