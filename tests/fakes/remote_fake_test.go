package fakes_test

import (
	"testing"
	"time"

	"github.com/systmms/gcpsecrets/pkg/secretstore"
	"github.com/systmms/gcpsecrets/tests/fakes"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

func TestFakeRemoteClientContract(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client := fakes.NewFakeRemoteClient().
		WithDefaultProject("proj").
		WithVersion("proj", "api-key", "1", secretstore.StateEnabled, created, "one").
		WithVersion("proj", "api-key", "2", secretstore.StateEnabled, created, "two").
		WithVersion("proj", "api-key", "3", secretstore.StateDisabled, created.Add(time.Hour), "three")

	testutil.RunClientContractTests(t, testutil.ClientTestCase{
		Name:     "fake",
		Client:   client,
		Project:  "proj",
		Secret:   "api-key",
		Payloads: map[string]string{"1": "one", "2": "two"},
		Inactive: []string{"3"},
		// Equal create times go to the larger version.
		Latest: "2",
	})
}
