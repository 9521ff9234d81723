package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// GCPSecretVersionIterator is the iterator returned by ListSecretVersions.
// It is an alias so the fake satisfies providers.GCPSecretManagerAPI without
// importing it.
type GCPSecretVersionIterator = interface {
	Next() (*secretmanagerpb.SecretVersion, error)
}

// FakeGCPSecretManagerClient is a mock implementation of the Secret Manager
// calls used by providers.GCPSecretManagerClient
type FakeGCPSecretManagerClient struct {
	// Versions maps version resource names (projects/X/secrets/Y/versions/Z) to their data
	Versions map[string]*GCPSecretVersionData
	// Errors maps resource names (secret or version) to errors to return
	Errors map[string]error
	// ListSecretVersionsFunc allows custom behavior for ListSecretVersions
	ListSecretVersionsFunc func(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) GCPSecretVersionIterator
	// AccessSecretVersionFunc allows custom behavior for AccessSecretVersion
	AccessSecretVersionFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)

	mu     sync.Mutex
	calls  map[string]int
	closed bool
}

// GCPSecretVersionData holds version-specific data for a GCP secret
type GCPSecretVersionData struct {
	Name       string
	State      secretmanagerpb.SecretVersion_State
	CreateTime *timestamppb.Timestamp
	Data       []byte
}

// NewFakeGCPSecretManagerClient creates a new mock GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Versions: make(map[string]*GCPSecretVersionData),
		Errors:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

// AddSecretVersion adds a version of a secret
func (f *FakeGCPSecretManagerClient) AddSecretVersion(projectID, secretName, version string, state secretmanagerpb.SecretVersion_State, created time.Time, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, secretName, version)
	f.Versions[name] = &GCPSecretVersionData{
		Name:       name,
		State:      state,
		CreateTime: timestamppb.New(created),
		Data:       data,
	}
}

// AddError configures the mock to return an error for a secret or version
// resource name
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[resourceName] = err
}

// CallCount returns how many times method was called
func (f *FakeGCPSecretManagerClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Closed reports whether Close was called
func (f *FakeGCPSecretManagerClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// ListSecretVersions mocks the ListSecretVersions operation
func (f *FakeGCPSecretManagerClient) ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) GCPSecretVersionIterator {
	f.mu.Lock()
	f.calls["ListSecretVersions"]++
	fn := f.ListSecretVersionsFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.Parent]; exists {
		return NewFakeSecretVersionIterator(nil, err)
	}

	prefix := req.Parent + "/versions/"
	var versions []*secretmanagerpb.SecretVersion
	for name, v := range f.Versions {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		versions = append(versions, &secretmanagerpb.SecretVersion{
			Name:       v.Name,
			State:      v.State,
			CreateTime: v.CreateTime,
		})
	}
	if len(versions) == 0 {
		return NewFakeSecretVersionIterator(nil, GCPNotFoundError(req.Parent))
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Name < versions[j].Name })
	return NewFakeSecretVersionIterator(versions, nil)
}

// AccessSecretVersion mocks the AccessSecretVersion operation
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	f.calls["AccessSecretVersion"]++
	fn := f.AccessSecretVersionFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}

	version, exists := f.Versions[req.Name]
	if !exists {
		return nil, GCPNotFoundError(req.Name)
	}
	if version.State != secretmanagerpb.SecretVersion_ENABLED {
		return nil, status.Errorf(codes.FailedPrecondition, "%s is in %s state", req.Name, version.State)
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name: version.Name,
		Payload: &secretmanagerpb.SecretPayload{
			Data: version.Data,
		},
	}, nil
}

// Close records that the client was closed
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// FakeSecretVersionIterator is a mock implementation of the version iterator
type FakeSecretVersionIterator struct {
	versions []*secretmanagerpb.SecretVersion
	index    int
	err      error
}

// NewFakeSecretVersionIterator creates a new fake version iterator. A
// non-nil err is returned from the first Next call.
func NewFakeSecretVersionIterator(versions []*secretmanagerpb.SecretVersion, err error) *FakeSecretVersionIterator {
	return &FakeSecretVersionIterator{
		versions: versions,
		err:      err,
	}
}

// Next returns the next version in the iteration
func (it *FakeSecretVersionIterator) Next() (*secretmanagerpb.SecretVersion, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.index >= len(it.versions) {
		return nil, iterator.Done
	}

	v := it.versions[it.index]
	it.index++
	return v, nil
}

// GCP error helpers

// GCPNotFoundError creates a mock GCP not found error
func GCPNotFoundError(resourceName string) error {
	return status.Errorf(codes.NotFound, "Resource %s not found", resourceName)
}

// GCPPermissionDeniedError creates a mock GCP permission denied error
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError creates a mock GCP unauthenticated error
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}

// GCPResourceExhaustedError creates a mock GCP resource exhausted (throttled) error
func GCPResourceExhaustedError() error {
	return status.Errorf(codes.ResourceExhausted, "Quota exceeded")
}
