package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ForUser converts a secret store error into a UserError with a suggestion
// for the given backend. Errors that already carry guidance pass through.
func ForUser(backend string, err error) error {
	if err == nil {
		return nil
	}

	var (
		userErr     UserError
		cfgErr      ConfigError
		storeCfgErr secretstore.ConfigurationError
		notFound    secretstore.NotFoundError
		unsupported secretstore.UnsupportedOperationError
		invalidKey  secretstore.InvalidKeyError
		remote      secretstore.RemoteServiceError
	)
	switch {
	case errors.As(err, &userErr), errors.As(err, &cfgErr):
		return err
	case errors.As(err, &storeCfgErr):
		return ConfigError{
			Field:      storeCfgErr.Field,
			Message:    storeCfgErr.Message,
			Suggestion: firstNonEmpty(storeCfgErr.Suggestion, projectSuggestion(backend)),
		}
	case errors.As(err, &notFound):
		return UserError{
			Message:    notFound.Error(),
			Suggestion: notFoundSuggestion(backend),
			Err:        err,
		}
	case errors.As(err, &unsupported):
		return UserError{
			Message:    unsupported.Error(),
			Suggestion: "Write secrets with your provider's own tooling, e.g. 'gcloud secrets versions add'",
			Err:        err,
		}
	case errors.As(err, &invalidKey):
		return UserError{
			Message:    invalidKey.Error(),
			Suggestion: "Use NAME, NAME:VERSION or NAME@VERSION",
			Err:        err,
		}
	case errors.As(err, &remote):
		return UserError{
			Message:    fmt.Sprintf("Failed to %s secret '%s'", remoteVerb(remote.Op), remote.Name),
			Details:    remote.Err.Error(),
			Suggestion: Suggest(backend, remote.Err),
			Err:        err,
		}
	}
	return err
}

// Suggest returns a remediation hint for a remote failure.
func Suggest(backend string, err error) string {
	if err == nil {
		return ""
	}
	switch backend {
	case "gcp":
		return gcpSuggestion(err)
	case "aws", "aws-ssm":
		return awsSuggestion(err)
	case "azure":
		return azureSuggestion(err)
	}
	return genericSuggestion(err)
}

func gcpSuggestion(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return "Grant the caller 'roles/secretmanager.secretAccessor' (and 'secretmanager.versions.list' for latest lookups)"
	case codes.Unauthenticated:
		return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
	case codes.NotFound:
		return "Check the project ID and secret name. List secrets with: 'gcloud secrets list'"
	case codes.InvalidArgument:
		return "Check the secret name and version format"
	case codes.ResourceExhausted:
		return "Secret Manager quota exceeded. Wait a moment and try again"
	case codes.FailedPrecondition:
		return "The version is disabled or destroyed. Pick an enabled version with 'gcloud secrets versions list'"
	case codes.DeadlineExceeded:
		return "The request timed out. Raise timeout_ms or check network connectivity"
	}
	if strings.Contains(strings.ToLower(err.Error()), "project") {
		return "Check that the project ID is correct and Secret Manager is enabled"
	}
	return genericSuggestion(err)
}

func awsSuggestion(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "AccessDenied"):
		return "Check IAM permissions for secretsmanager:GetSecretValue and secretsmanager:ListSecretVersionIds (or ssm:GetParameter and ssm:GetParameterHistory)"
	case strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization"):
		return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
	case strings.Contains(errStr, "ThrottlingException"):
		return "AWS rate limit exceeded. Wait a moment and try again"
	}
	return genericSuggestion(err)
}

func azureSuggestion(err error) string {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 401:
			return "Check authentication: verify managed identity, service principal, or Azure CLI login"
		case 403:
			return "Check Key Vault access policies: 'Get' and 'List' permissions are required for secrets"
		case 429:
			return "Request was throttled. Wait a moment and try again"
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "tenant") {
		return "Check that the tenant ID is correct and the application is registered"
	}
	return genericSuggestion(err)
}

func genericSuggestion(err error) string {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "deadline exceeded") || strings.Contains(errStr, "timeout"):
		return "The operation timed out. Check your network connection and try again"
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return "Unable to connect. Check your network and endpoint configuration"
	}
	return ""
}

func projectSuggestion(backend string) string {
	switch backend {
	case "aws", "aws-ssm":
		return "Pass --project <region> or set AWS_REGION"
	case "azure":
		return "Pass --project <vault-name> or set AZURE_KEYVAULT_URL"
	}
	return "Pass --project <id> or configure ADC with: gcloud auth application-default login"
}

func notFoundSuggestion(backend string) string {
	switch backend {
	case "aws":
		return "Verify the secret name and region. List versions with: 'aws secretsmanager list-secret-version-ids --secret-id <name>'"
	case "aws-ssm":
		return "Verify the parameter name and region. List versions with: 'aws ssm get-parameter-history --name <name>'"
	case "azure":
		return "Verify the secret exists in the Key Vault. Secret names are case-sensitive"
	}
	return "Check the secret name and project. List versions with: 'gcloud secrets versions list <name>'"
}

func remoteVerb(op string) string {
	if op == "list" {
		return "list versions of"
	}
	return "access"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
