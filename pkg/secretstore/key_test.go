package secretstore_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/gcpsecrets/pkg/secretstore"
)

func TestKeyNormalization(t *testing.T) {
	t.Parallel()

	assert.Equal(t, secretstore.Latest("db"), secretstore.Version("db", "latest"))
	assert.NotEqual(t, secretstore.Latest("db"), secretstore.Version("db", "1"))
	assert.NotEqual(t, secretstore.Version("db", "1"), secretstore.Version("db", "2"))

	k := secretstore.Version("db", "3")
	assert.Equal(t, "db", k.Name())
	assert.Equal(t, "3", k.Version())
	assert.False(t, k.IsLatest())
	assert.Equal(t, "db:3", k.String())

	l := secretstore.Latest("db")
	assert.Equal(t, "latest", l.Version())
	assert.True(t, l.IsLatest())
	assert.Equal(t, "db", l.String())
}

func TestKeyAsMapKey(t *testing.T) {
	t.Parallel()

	m := map[secretstore.Key]string{
		secretstore.Latest("db"):       "latest",
		secretstore.Version("db", "1"): "one",
	}
	assert.Equal(t, "latest", m[secretstore.Version("db", "latest")])
	assert.Equal(t, "one", m[secretstore.Version("db", "1")])
}

func TestKeyOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		parts   []string
		want    secretstore.Key
		wantErr bool
	}{
		{name: "name only", parts: []string{"db"}, want: secretstore.Latest("db")},
		{name: "name and version", parts: []string{"db", "2"}, want: secretstore.Version("db", "2")},
		{name: "explicit latest", parts: []string{"db", "latest"}, want: secretstore.Latest("db")},
		{name: "no parts", parts: nil, wantErr: true},
		{name: "three parts", parts: []string{"db", "1", "x"}, wantErr: true},
		{name: "empty name", parts: []string{""}, wantErr: true},
		{name: "whitespace name", parts: []string{"   "}, wantErr: true},
		{name: "empty version", parts: []string{"db", ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := secretstore.KeyOf(tt.parts...)
			if tt.wantErr {
				var invalid secretstore.InvalidKeyError
				require.True(t, errors.As(err, &invalid), "expected InvalidKeyError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref     string
		want    secretstore.Key
		wantErr bool
	}{
		{ref: "db-password", want: secretstore.Latest("db-password")},
		{ref: "db-password:3", want: secretstore.Version("db-password", "3")},
		{ref: "db-password@3", want: secretstore.Version("db-password", "3")},
		{ref: "db-password@latest", want: secretstore.Latest("db-password")},
		{ref: "db-password:", wantErr: true},
		{ref: ":3", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()

			got, err := secretstore.ParseKey(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// String round-trips through ParseKey.
			again, err := secretstore.ParseKey(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestKeyValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, secretstore.Latest("db").Validate())
	assert.Error(t, secretstore.Latest("").Validate())
	assert.Error(t, secretstore.Key{}.Validate())
	assert.Error(t, secretstore.Version("db", " ").Validate())
}
