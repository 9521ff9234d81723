package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

// ClientTestCase defines a remote client under test with the data it was
// seeded with.
type ClientTestCase struct {
	// Name is a descriptive name for this test case (usually the backend name)
	Name string

	// Client is the implementation to test
	Client secretstore.RemoteSecretClient

	// Project holds the seeded secret
	Project string

	// Secret is the name of a secret seeded with Payloads
	Secret string

	// Payloads maps every active version of Secret to its payload
	Payloads map[string]string

	// Inactive lists versions of Secret that exist but may not be read
	Inactive []string

	// Latest is the version a latest lookup must resolve to
	Latest string

	// SkipConcurrency skips the concurrency test if true
	SkipConcurrency bool
}

// RunClientContractTests runs all contract tests for a remote client.
//
// This function executes the complete contract suite:
//   - ListVersions reports every version with its state
//   - FetchPayload returns each active payload byte for byte
//   - Missing secrets and versions wrap ErrRemoteNotFound
//   - A Store over the client resolves latest to the expected version
//   - Concurrent use is safe
//
// Example usage:
//
//	tc := testutil.ClientTestCase{
//	    Name:     "gcp",
//	    Client:   client,
//	    Project:  "proj",
//	    Secret:   "db",
//	    Payloads: map[string]string{"1": "old", "2": "new"},
//	    Latest:   "2",
//	}
//	testutil.RunClientContractTests(t, tc)
func RunClientContractTests(t *testing.T, tc ClientTestCase) {
	t.Helper()

	require.NotNil(t, tc.Client, "Client cannot be nil")
	require.NotEmpty(t, tc.Name, "Test case name cannot be empty")
	require.NotEmpty(t, tc.Payloads, "Payloads must contain at least one version")

	t.Run("ListVersions", func(t *testing.T) {
		testListVersions(t, tc)
	})

	t.Run("FetchPayload", func(t *testing.T) {
		testFetchPayload(t, tc)
	})

	t.Run("NotFound", func(t *testing.T) {
		testNotFound(t, tc)
	})

	t.Run("Store", func(t *testing.T) {
		testStore(t, tc)
	})

	if !tc.SkipConcurrency {
		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, tc)
		})
	}
}

func contractContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testListVersions(t *testing.T, tc ClientTestCase) {
	t.Helper()

	versions, err := tc.Client.ListVersions(contractContext(t), tc.Project, tc.Secret)
	require.NoError(t, err, "ListVersions() should succeed for an existing secret")

	states := make(map[string]secretstore.VersionState, len(versions))
	for _, v := range versions {
		assert.NotEmpty(t, v.Version, "every version must carry an identifier")
		assert.False(t, v.CreateTime.IsZero(), "version %s has no create time", v.Version)
		states[v.Version] = v.State
	}

	for version := range tc.Payloads {
		if assert.Contains(t, states, version) {
			assert.True(t, states[version].Active(), "version %s should be active", version)
		}
	}
	for _, version := range tc.Inactive {
		if assert.Contains(t, states, version) {
			assert.False(t, states[version].Active(), "version %s should be inactive", version)
		}
	}
	assert.Len(t, versions, len(tc.Payloads)+len(tc.Inactive))
}

func testFetchPayload(t *testing.T, tc ClientTestCase) {
	t.Helper()

	ctx := contractContext(t)
	for _, version := range sortedVersions(tc.Payloads) {
		t.Run(fmt.Sprintf("Version_%s", sanitizeTestName(version)), func(t *testing.T) {
			data, err := tc.Client.FetchPayload(ctx, tc.Project, tc.Secret, version)
			require.NoError(t, err, "FetchPayload() should succeed for an active version")
			assert.Equal(t, tc.Payloads[version], string(data))
		})
	}
}

func testNotFound(t *testing.T, tc ClientTestCase) {
	t.Helper()

	ctx := contractContext(t)
	missing := "this-secret-definitely-does-not-exist-" + time.Now().Format("20060102150405")

	t.Run("ListVersions_MissingSecret", func(t *testing.T) {
		_, err := tc.Client.ListVersions(ctx, tc.Project, missing)
		require.Error(t, err)
		assert.True(t, errors.Is(err, secretstore.ErrRemoteNotFound), "got %v", err)
	})

	t.Run("FetchPayload_MissingVersion", func(t *testing.T) {
		_, err := tc.Client.FetchPayload(ctx, tc.Project, tc.Secret, "999999")
		require.Error(t, err)
		assert.True(t, errors.Is(err, secretstore.ErrRemoteNotFound), "got %v", err)
	})
}

func testStore(t *testing.T, tc ClientTestCase) {
	t.Helper()

	ctx := contractContext(t)
	store, err := secretstore.New(ctx, tc.Client, secretstore.WithProject(tc.Project))
	require.NoError(t, err)

	value, err := store.Get(ctx, secretstore.Latest(tc.Secret))
	require.NoError(t, err)
	assert.Equal(t, tc.Payloads[tc.Latest], value, "latest should resolve to version %s", tc.Latest)

	ok, err := store.Contains(ctx, secretstore.Latest("this-secret-definitely-does-not-exist"))
	require.NoError(t, err)
	assert.False(t, ok)

	versions, err := store.Versions(ctx, tc.Secret)
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	for _, v := range versions {
		if v.State.Active() {
			assert.Equal(t, tc.Latest, v.Version, "Versions() lists newest first")
			return
		}
	}
	t.Errorf("Versions() returned no active version")
}

// testConcurrency validates thread-safety with concurrent access.
func testConcurrency(t *testing.T, tc ClientTestCase) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	ctx := contractContext(t)

	const concurrency = 50
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			if _, err := tc.Client.ListVersions(ctx, tc.Project, tc.Secret); err != nil {
				errs <- fmt.Errorf("goroutine %d: ListVersions failed: %w", id, err)
				return
			}
			data, err := tc.Client.FetchPayload(ctx, tc.Project, tc.Secret, tc.Latest)
			if err != nil {
				errs <- fmt.Errorf("goroutine %d: FetchPayload failed: %w", id, err)
				return
			}
			if string(data) != tc.Payloads[tc.Latest] {
				errs <- fmt.Errorf("goroutine %d: got %q, want %q", id, data, tc.Payloads[tc.Latest])
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	var failed int
	for err := range errs {
		t.Error(err)
		failed++
	}
	if failed > 0 {
		t.Fatalf("Concurrency test failed with %d errors", failed)
	}
}

func sortedVersions(payloads map[string]string) []string {
	versions := make([]string, 0, len(payloads))
	for v := range payloads {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// sanitizeTestName converts a version or key to a valid test name
func sanitizeTestName(key string) string {
	result := ""
	for _, ch := range key {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			result += string(ch)
		} else {
			result += "_"
		}
	}
	return result
}
