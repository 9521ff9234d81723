package secretstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRemoteNotFound is wrapped by RemoteSecretClient implementations when the
// remote service reports that a secret or version does not exist. The Store
// translates it into NotFoundError; any other remote failure becomes a
// RemoteServiceError.
var ErrRemoteNotFound = errors.New("remote secret not found")

// ConfigurationError indicates that a Store could not be constructed from the
// given options.
//
// Suggestion carries a remediation hint, such as how to configure a default
// project, and is included in the error text.
type ConfigurationError struct {
	// Field is the option that was rejected, e.g. "project".
	Field string

	// Message describes what is wrong.
	Message string

	// Suggestion tells the caller how to fix it.
	Suggestion string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Suggestion != "" {
		msg += ". " + e.Suggestion
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e ConfigurationError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates that a secret, one of its versions, or any active
// version of it does not exist.
//
// It is the only error GetOr replaces with the default value and the only one
// Contains turns into false.
type NotFoundError struct {
	// Project is the project that was searched.
	Project string

	// Name is the secret name.
	Name string

	// Version is the requested or resolved version, or LatestVersion.
	Version string

	// Reason optionally refines the message, e.g. "no active versions".
	Reason string

	// Err is the remote error that reported the absence, if any.
	Err error
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	var msg string
	if e.Version == "" || e.Version == LatestVersion {
		msg = fmt.Sprintf("secret '%s' not found in project '%s'", e.Name, e.Project)
	} else {
		msg = fmt.Sprintf("version '%s' of secret '%s' not found in project '%s'", e.Version, e.Name, e.Project)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns the remote error.
func (e NotFoundError) Unwrap() error {
	return e.Err
}

// UnsupportedOperationError is returned by every mutating operation. The store
// is read-only.
type UnsupportedOperationError struct {
	// Op is the rejected operation, e.g. "set".
	Op string
}

// Error implements the error interface.
func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation '%s' is not supported: secret store is read-only", e.Op)
}

// RemoteServiceError wraps any failure of the remote service other than
// not-found: permission and authentication failures, quota, transport errors
// and timeouts. The original error is preserved unmodified.
type RemoteServiceError struct {
	// Op is the remote operation, "list" or "access".
	Op string

	// Project, Name and Version locate the failed request.
	Project string
	Name    string
	Version string

	// Err is the error returned by the remote client.
	Err error
}

// Error implements the error interface.
func (e RemoteServiceError) Error() string {
	target := fmt.Sprintf("secret '%s'", e.Name)
	if e.Version != "" && e.Version != LatestVersion {
		target = fmt.Sprintf("version '%s' of secret '%s'", e.Version, e.Name)
	}
	return fmt.Sprintf("remote %s failed for %s in project '%s': %v", e.Op, target, e.Project, e.Err)
}

// Unwrap returns the remote error.
func (e RemoteServiceError) Unwrap() error {
	return e.Err
}

// InvalidKeyError indicates a malformed Key.
type InvalidKeyError struct {
	// Parts are the components the key was built from.
	Parts []string

	// Reason explains what is wrong.
	Reason string
}

// Error implements the error interface.
func (e InvalidKeyError) Error() string {
	quoted := make([]string, len(e.Parts))
	for i, p := range e.Parts {
		quoted[i] = fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("invalid key (%s): %s", strings.Join(quoted, ", "), e.Reason)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
