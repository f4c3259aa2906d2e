package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid secret key"},
		{name: "traversal", key: "../escape", wantErr: "invalid secret key"},
		{name: "deep traversal", key: "../../secret", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "zpool_token_api.zpools.io_alice.toml"
	want := "access_token = \"jwt\"\n"

	err := store.Put(context.Background(), key, want)
	require.NoError(t, err)

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	secretPath := filepath.Join(root, key)
	info, err := os.Stat(secretPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMod), info.Mode().Perm())
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	key := "zpool_token_api.zpools.io_alice.toml"

	err := store.Delete(context.Background(), key)
	require.NoError(t, err)

	err = store.Delete(context.Background(), key)
	require.NoError(t, err)
}

func TestStoreGetMissingSecretIsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), "zpool_token_api.zpools.io_bob.toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorePutReplacesAtomically(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(filepath.Join(root, "cache"))
	key := "zpool_token_api.zpools.io_alice.toml"

	require.NoError(t, store.Put(context.Background(), key, "first"))
	require.NoError(t, store.Put(context.Background(), key, "second"))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	entries, err := os.ReadDir(filepath.Join(root, "cache"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, key, entries[0].Name())

	dirInfo, err := os.Stat(filepath.Join(root, "cache"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(storeDirMode), dirInfo.Mode().Perm())
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "key", "value"), context.Canceled)
	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Delete(ctx, "key"), context.Canceled)
}
