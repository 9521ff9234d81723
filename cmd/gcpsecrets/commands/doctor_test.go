package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/gcpsecrets/internal/errors"
	"github.com/systmms/gcpsecrets/tests/testutil"
)

func TestDoctorCommand_Healthy(t *testing.T) {
	useClient(t, identityClient{nopCloser: nopCloser{seededRemote()}, identity: "reader@proj.iam.gserviceaccount.com"}, nil)
	logger := testutil.NewTestLogger(t)
	cfg := testConfig(t, "project: proj\n")
	cfg.Logger = logger.Logger()

	out, _, err := execute(t, NewDoctorCommand(cfg), "--secret", "db")
	require.NoError(t, err)

	testutil.AssertLinesContain(t, out, []string{
		"CHECK",
		"configuration",
		"backend",
		"✓ ok  ",
		"reader@proj.iam.gserviceaccount.com",
		"secret db",
		"Summary: 5/5 checks passed",
	})
	logger.AssertContains(t, "All checks passed")
	logger.AssertNotContains(t, "revoked")
	testutil.AssertNoSecretLeak(t, out+logger.GetOutput(), []string{"new", "old"})
}

func TestDoctorCommand_IdentityNotReported(t *testing.T) {
	useFake(t, seededRemote())
	cfg := testConfig(t, "project: proj\n")

	out, _, err := execute(t, NewDoctorCommand(cfg))
	require.NoError(t, err)
	testutil.AssertLinesContain(t, out, []string{
		"- skipped",
		"Summary: 4/4 checks passed",
	})
	assert.NotContains(t, out, "✗")
}

func TestDoctorCommand_Failures(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		args      []string
		clientErr error
		identity  error
		wantLines []string
	}{
		{
			name:      "invalid configuration",
			yaml:      "backend: vault\n",
			wantLines: []string{"configuration", "✗ error", "Summary: 0/1 checks passed"},
		},
		{
			name:      "client creation",
			yaml:      "project: proj\n",
			clientErr: dserrors.ConfigError{Field: "gcp.service_account_key_path", Message: "file not found", Suggestion: "Check the key path"},
			args:      []string{"--verbose"},
			wantLines: []string{"gcp.service_account_key_path: file not found", "Check the key path", "Summary: 1/2 checks passed"},
		},
		{
			name:      "identity",
			yaml:      "project: proj\n",
			identity:  errors.New("connection refused"),
			wantLines: []string{"identity", "✗ error", "Summary: 3/4 checks passed"},
		},
		{
			name:      "missing secret",
			yaml:      "project: proj\n",
			args:      []string{"--secret", "missing", "--verbose"},
			wantLines: []string{"secret missing", "no active version", "gcpsecrets versions missing", "Summary: 4/5 checks passed"},
		},
		{
			name:      "no active version",
			yaml:      "project: proj\n",
			args:      []string{"--secret", "db:3", "--verbose"},
			wantLines: []string{"secret db:3", "Summary: 4/5 checks passed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := identityClient{nopCloser: nopCloser{seededRemote()}, identity: "reader", err: tt.identity}
			if tt.clientErr != nil {
				useClient(t, nil, tt.clientErr)
			} else {
				useClient(t, client, nil)
			}
			cfg := testConfig(t, tt.yaml)

			out, _, err := execute(t, NewDoctorCommand(cfg), tt.args...)
			testutil.AssertErrorContains(t, err, "some checks failed")
			testutil.AssertLinesContain(t, out, tt.wantLines)
		})
	}
}
