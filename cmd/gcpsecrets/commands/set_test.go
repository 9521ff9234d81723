package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

func TestSetCommand(t *testing.T) {
	fake := seededRemote()
	useFake(t, fake)
	cfg := testConfig(t, "project: proj\n")

	for _, key := range []string{"db", "db:1", "brand-new"} {
		out, _, err := execute(t, NewSetCommand(cfg), key, "value")
		require.Error(t, err)
		assert.Empty(t, out)

		var unsupported secretstore.UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported), "got %T", err)
		assert.Equal(t, "set", unsupported.Op)
		testutil.AssertErrorContains(t, err, "read-only")
	}

	assert.Zero(t, fake.CallCount("DefaultProject"))
	assert.Zero(t, fake.CallCount("ListVersions"))
	assert.Zero(t, fake.CallCount("FetchPayload"))
}

func TestSetCommand_AnyKeyIsReadOnly(t *testing.T) {
	cfg := testConfig(t, "project: proj\n")

	for _, key := range []string{"", "db:", ":1", "a:b:c"} {
		_, _, err := execute(t, NewSetCommand(cfg), key, "value")

		var unsupported secretstore.UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported), "key %q: got %v", key, err)
		testutil.AssertErrorContains(t, err, "read-only")
	}
}
