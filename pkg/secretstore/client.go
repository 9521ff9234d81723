package secretstore

import (
	"context"
	"time"
)

// VersionState is the lifecycle state of a secret version.
type VersionState int

const (
	StateUnspecified VersionState = iota
	StateEnabled
	StateDisabled
	StateDestroyed
)

// String returns the lower-case state name.
func (s VersionState) String() string {
	switch s {
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unspecified"
	}
}

// Active reports whether a version in this state may be read.
func (s VersionState) Active() bool {
	return s == StateEnabled
}

// VersionMetadata describes one version as reported by the remote service.
type VersionMetadata struct {
	// Version is the version identifier, e.g. "3".
	Version string `json:"version"`

	// State is the lifecycle state.
	State VersionState `json:"-"`

	// CreateTime is when the version was created.
	CreateTime time.Time `json:"create_time"`
}

// RemoteSecretClient is the narrow view of a secret-storage service used by
// Store. Implementations live in internal/providers; tests use the in-memory
// fake in tests/fakes.
//
// Implementations must report absence of a secret or version with an error
// that wraps ErrRemoteNotFound.
type RemoteSecretClient interface {
	// ListVersions returns the metadata of every version of name, in any order.
	ListVersions(ctx context.Context, project, name string) ([]VersionMetadata, error)

	// FetchPayload returns the raw payload of one version.
	FetchPayload(ctx context.Context, project, name, version string) ([]byte, error)

	// DefaultProject returns the project inferred from ambient credentials,
	// or "" when there is none.
	DefaultProject(ctx context.Context) (string, error)
}
