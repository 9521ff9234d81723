package fakes

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// FakeSecretsManagerClient is a mock implementation of the Secrets Manager
// calls used by providers.AWSSecretsManagerClient. List results are paged
// PageSize entries at a time so callers exercise pagination.
type FakeSecretsManagerClient struct {
	// Secrets maps secret names to their versions
	Secrets map[string][]*SecretVersionData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// PageSize bounds ListSecretVersionIds pages
	PageSize int

	mu    sync.Mutex
	calls map[string]int
}

// SecretVersionData holds the data for one version of a mock secret
type SecretVersionData struct {
	VersionId     string
	VersionStages []string
	CreatedDate   time.Time
	SecretString  *string
	SecretBinary  []byte
}

// NewFakeSecretsManagerClient creates a new mock Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets:  make(map[string][]*SecretVersionData),
		Errors:   make(map[string]error),
		PageSize: 2,
		calls:    make(map[string]int),
	}
}

// AddSecretVersion adds a string version with the given staging labels
func (f *FakeSecretsManagerClient) AddSecretVersion(name, versionID string, created time.Time, value string, stages ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = append(f.Secrets[name], &SecretVersionData{
		VersionId:     versionID,
		VersionStages: stages,
		CreatedDate:   created,
		SecretString:  aws.String(value),
	})
}

// AddBinaryVersion adds a binary version with the given staging labels
func (f *FakeSecretsManagerClient) AddBinaryVersion(name, versionID string, created time.Time, value []byte, stages ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = append(f.Secrets[name], &SecretVersionData{
		VersionId:     versionID,
		VersionStages: stages,
		CreatedDate:   created,
		SecretBinary:  value,
	})
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// CallCount returns how many times method was called
func (f *FakeSecretsManagerClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// ListSecretVersionIds mocks the ListSecretVersionIds operation
func (f *FakeSecretsManagerClient) ListSecretVersionIds(ctx context.Context, params *secretsmanager.ListSecretVersionIdsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretVersionIdsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListSecretVersionIds"]++

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	versions, exists := f.Secrets[name]
	if !exists {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
		}
	}

	var entries []types.SecretVersionsListEntry
	for _, v := range versions {
		// Versions without labels are deprecated and only listed on request.
		if len(v.VersionStages) == 0 && !aws.ToBool(params.IncludeDeprecated) {
			continue
		}
		created := v.CreatedDate
		entries = append(entries, types.SecretVersionsListEntry{
			VersionId:     aws.String(v.VersionId),
			VersionStages: v.VersionStages,
			CreatedDate:   &created,
		})
	}

	start := 0
	if token := aws.ToString(params.NextToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid next token %q", token)
		}
		start = n
	}
	end := len(entries)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	out := &secretsmanager.ListSecretVersionIdsOutput{
		Name:     aws.String(name),
		Versions: entries[start:end],
	}
	if end < len(entries) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

// GetSecretValue mocks the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetSecretValue"]++

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	versionID := aws.ToString(params.VersionId)
	for _, v := range f.Secrets[name] {
		if v.VersionId != versionID {
			continue
		}
		created := v.CreatedDate
		return &secretsmanager.GetSecretValueOutput{
			Name:          aws.String(name),
			VersionId:     aws.String(v.VersionId),
			VersionStages: v.VersionStages,
			CreatedDate:   &created,
			SecretString:  v.SecretString,
			SecretBinary:  v.SecretBinary,
		}, nil
	}

	return nil, &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret value for VersionId: %s", versionID)),
	}
}

// FakeSSMClient is a mock implementation of the Parameter Store calls used
// by providers.AWSSSMClient
type FakeSSMClient struct {
	// Parameters maps parameter names to their history, oldest first
	Parameters map[string][]*ParameterVersionData
	// Errors maps parameter names to errors to return
	Errors map[string]error
	// PageSize bounds GetParameterHistory pages
	PageSize int

	mu    sync.Mutex
	calls map[string]int
}

// ParameterVersionData holds one version of a mock SSM parameter
type ParameterVersionData struct {
	Version          int64
	Type             ssmtypes.ParameterType
	Value            string
	LastModifiedDate time.Time
}

// NewFakeSSMClient creates a new mock SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string][]*ParameterVersionData),
		Errors:     make(map[string]error),
		PageSize:   2,
		calls:      make(map[string]int),
	}
}

// PutParameter appends a SecureString version to the parameter's history and
// returns its version number
func (f *FakeSSMClient) PutParameter(name, value string, modified time.Time) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	version := int64(len(f.Parameters[name]) + 1)
	f.Parameters[name] = append(f.Parameters[name], &ParameterVersionData{
		Version:          version,
		Type:             ssmtypes.ParameterTypeSecureString,
		Value:            value,
		LastModifiedDate: modified,
	})
	return version
}

// AddError configures the mock to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// CallCount returns how many times method was called
func (f *FakeSSMClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// GetParameterHistory mocks the GetParameterHistory operation
func (f *FakeSSMClient) GetParameterHistory(ctx context.Context, params *ssm.GetParameterHistoryInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterHistoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetParameterHistory"]++

	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	history, exists := f.Parameters[name]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", name)),
		}
	}

	start := 0
	if token := aws.ToString(params.NextToken); token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("invalid next token %q", token)
		}
		start = n
	}
	end := len(history)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}

	out := &ssm.GetParameterHistoryOutput{}
	for _, p := range history[start:end] {
		modified := p.LastModifiedDate
		out.Parameters = append(out.Parameters, ssmtypes.ParameterHistory{
			Name:             aws.String(name),
			Type:             p.Type,
			Version:          p.Version,
			LastModifiedDate: &modified,
		})
	}
	if end < len(history) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

// GetParameter mocks the GetParameter operation. The name may carry a
// ":version" selector.
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetParameter"]++

	name, selector, hasSelector := strings.Cut(aws.ToString(params.Name), ":")
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	history, exists := f.Parameters[name]
	if !exists || len(history) == 0 {
		return nil, &ssmtypes.ParameterNotFound{
			Message: aws.String(fmt.Sprintf("Parameter %s not found", name)),
		}
	}

	data := history[len(history)-1]
	if hasSelector {
		data = nil
		for _, p := range history {
			if strconv.FormatInt(p.Version, 10) == selector {
				data = p
				break
			}
		}
		if data == nil {
			return nil, &ssmtypes.ParameterVersionNotFound{
				Message: aws.String(fmt.Sprintf("Systems Manager could not find version %s of %s", selector, name)),
			}
		}
	}

	value := data.Value
	if data.Type == ssmtypes.ParameterTypeSecureString && !aws.ToBool(params.WithDecryption) {
		value = "AQICAHh-encrypted"
	}
	modified := data.LastModifiedDate
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:             aws.String(name),
			Type:             data.Type,
			Value:            aws.String(value),
			Version:          data.Version,
			LastModifiedDate: &modified,
		},
	}, nil
}

// FakeSTSClient is a mock implementation of GetCallerIdentity
type FakeSTSClient struct {
	Account string
	Arn     string
	UserId  string
	Err     error
}

// GetCallerIdentity mocks the GetCallerIdentity operation
func (f *FakeSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(f.Account),
		Arn:     aws.String(f.Arn),
		UserId:  aws.String(f.UserId),
	}, nil
}

