package fakes

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// FakeRemoteClient is an in-memory secretstore.RemoteSecretClient.
//
// Secrets live in a map keyed by project and name; each holds any number of
// versions with a state, create time and payload. Calls are counted per
// method so tests can assert on cache behavior.
//
//	fake := fakes.NewFakeRemoteClient().
//	    WithDefaultProject("proj").
//	    WithVersion("proj", "db", "1", secretstore.StateEnabled, t0, "old").
//	    WithVersion("proj", "db", "2", secretstore.StateEnabled, t1, "new")
//
//	store, _ := secretstore.New(ctx, fake)
//	value, _ := store.Get(ctx, secretstore.Latest("db")) // "new"
//	fake.CallCount("ListVersions")                      // 1
type FakeRemoteClient struct {
	defaultProject string
	defaultErr     error

	secrets  map[string]map[string]*fakeVersion // project/name -> version -> data
	listErr  map[string]error                   // project/name -> error
	fetchErr map[string]error                   // project/name/version -> error

	listDelay time.Duration
	callCount map[string]int

	mu sync.RWMutex
}

type fakeVersion struct {
	meta    secretstore.VersionMetadata
	payload []byte
}

// NewFakeRemoteClient returns an empty fake with no default project.
func NewFakeRemoteClient() *FakeRemoteClient {
	return &FakeRemoteClient{
		secrets:   make(map[string]map[string]*fakeVersion),
		listErr:   make(map[string]error),
		fetchErr:  make(map[string]error),
		callCount: make(map[string]int),
	}
}

// WithDefaultProject sets the project returned by DefaultProject.
func (f *FakeRemoteClient) WithDefaultProject(project string) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultProject = project
	return f
}

// WithDefaultProjectError makes DefaultProject fail.
func (f *FakeRemoteClient) WithDefaultProjectError(err error) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultErr = err
	return f
}

// WithSecret registers a secret with no versions.
func (f *FakeRemoteClient) WithSecret(project, name string) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secretLocked(project, name)
	return f
}

// WithVersion adds or replaces one version of a secret.
func (f *FakeRemoteClient) WithVersion(project, name, version string, state secretstore.VersionState, created time.Time, payload string) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.secretLocked(project, name)[version] = &fakeVersion{
		meta: secretstore.VersionMetadata{
			Version:    version,
			State:      state,
			CreateTime: created,
		},
		payload: []byte(payload),
	}
	return f
}

// AddVersion appends an enabled version numbered after the existing ones,
// created one second after the newest, and returns its identifier.
func (f *FakeRemoteClient) AddVersion(project, name, payload string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	versions := f.secretLocked(project, name)
	next := len(versions) + 1
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range versions {
		if v.meta.CreateTime.After(created) {
			created = v.meta.CreateTime
		}
	}
	version := strconv.Itoa(next)
	versions[version] = &fakeVersion{
		meta: secretstore.VersionMetadata{
			Version:    version,
			State:      secretstore.StateEnabled,
			CreateTime: created.Add(time.Duration(next) * time.Second),
		},
		payload: []byte(payload),
	}
	return version
}

// SetState changes the state of an existing version.
func (f *FakeRemoteClient) SetState(project, name, version string, state secretstore.VersionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.secrets[secretKey(project, name)][version]; ok {
		v.meta.State = state
	}
}

// WithListError makes ListVersions fail for one secret.
func (f *FakeRemoteClient) WithListError(project, name string, err error) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[secretKey(project, name)] = err
	return f
}

// WithFetchError makes FetchPayload fail for one version.
func (f *FakeRemoteClient) WithFetchError(project, name, version string, err error) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr[secretKey(project, name)+"/"+version] = err
	return f
}

// WithListDelay delays every ListVersions call.
func (f *FakeRemoteClient) WithListDelay(d time.Duration) *FakeRemoteClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDelay = d
	return f
}

// ClearErrors removes every configured error.
func (f *FakeRemoteClient) ClearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = make(map[string]error)
	f.fetchErr = make(map[string]error)
}

// ListVersions implements secretstore.RemoteSecretClient.
func (f *FakeRemoteClient) ListVersions(ctx context.Context, project, name string) ([]secretstore.VersionMetadata, error) {
	f.mu.Lock()
	f.callCount["ListVersions"]++
	delay := f.listDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	key := secretKey(project, name)
	if err, ok := f.listErr[key]; ok {
		return nil, err
	}
	versions, ok := f.secrets[key]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s", secretstore.ErrRemoteNotFound, key)
	}

	out := make([]secretstore.VersionMetadata, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.meta)
	}
	return out, nil
}

// FetchPayload implements secretstore.RemoteSecretClient. Reading a version
// that is not enabled fails with a non-not-found error, as the real service
// reports a failed precondition.
func (f *FakeRemoteClient) FetchPayload(ctx context.Context, project, name, version string) ([]byte, error) {
	f.mu.Lock()
	f.callCount["FetchPayload"]++
	f.mu.Unlock()

	f.mu.RLock()
	defer f.mu.RUnlock()

	key := secretKey(project, name)
	if err, ok := f.fetchErr[key+"/"+version]; ok {
		return nil, err
	}
	versions, ok := f.secrets[key]
	if !ok {
		return nil, fmt.Errorf("%w: secret %s", secretstore.ErrRemoteNotFound, key)
	}
	v, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: version %s/versions/%s", secretstore.ErrRemoteNotFound, key, version)
	}
	if !v.meta.State.Active() {
		return nil, fmt.Errorf("version %s/versions/%s is %s", key, version, v.meta.State)
	}
	return append([]byte(nil), v.payload...), nil
}

// DefaultProject implements secretstore.RemoteSecretClient.
func (f *FakeRemoteClient) DefaultProject(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount["DefaultProject"]++
	return f.defaultProject, f.defaultErr
}

// CallCount returns how many times method was called.
func (f *FakeRemoteClient) CallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callCount[method]
}

// ResetCallCounts zeroes every call counter.
func (f *FakeRemoteClient) ResetCallCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount = make(map[string]int)
}

func (f *FakeRemoteClient) secretLocked(project, name string) map[string]*fakeVersion {
	key := secretKey(project, name)
	versions, ok := f.secrets[key]
	if !ok {
		versions = make(map[string]*fakeVersion)
		f.secrets[key] = versions
	}
	return versions
}

func secretKey(project, name string) string {
	return "projects/" + project + "/secrets/" + name
}
