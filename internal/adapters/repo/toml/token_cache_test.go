package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpools-io/zpools-cli/internal/adapters/secrets/file"
	"github.com/zpools-io/zpools-cli/internal/domain"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		apiURL   string
		username string
		want     string
		wantErr  string
	}{
		{name: "default api", apiURL: "https://api.zpools.io/v1", username: "alice", want: "zpool_token_api.zpools.io_alice.toml"},
		{name: "port is flattened", apiURL: "http://127.0.0.1:8080", username: "bob", want: "zpool_token_127.0.0.1_8080_bob.toml"},
		{name: "spaces rejected", apiURL: "https://api.zpools.io/v1", username: "alice smith", wantErr: "invalid username"},
		{name: "separators rejected", apiURL: "https://api.zpools.io/v1", username: "../alice", wantErr: "invalid username"},
		{name: "username required", apiURL: "https://api.zpools.io/v1", wantErr: "username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CacheKey(tt.apiURL, tt.username)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenCacheRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cache := NewTokenCache(file.NewStore(root))
	key := "zpool_token_api.zpools.io_alice.toml"

	issued := time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	lease := domain.CredentialLease{
		AccessToken: "access",
		IDToken:     "id",
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(time.Hour),
	}

	require.NoError(t, cache.Save(context.Background(), key, lease))

	got, err := cache.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, lease, got)

	data, err := os.ReadFile(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "access_token = ")

	require.NoError(t, cache.Clear(context.Background(), key))
	_, err = cache.Load(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrTokenNotCached)
}

func TestTokenCacheRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	store := file.NewStore(t.TempDir())
	key := "zpool_token_api.zpools.io_alice.toml"
	require.NoError(t, store.Put(context.Background(), key, "version = 9\naccess_token = 'x'\n"))

	_, err := NewTokenCache(store).Load(context.Background(), key)
	assert.ErrorContains(t, err, "unsupported token cache schema version 9")
}

func TestTokenCacheRejectsCorruptEntry(t *testing.T) {
	t.Parallel()

	store := file.NewStore(t.TempDir())
	key := "zpool_token_api.zpools.io_alice.toml"
	require.NoError(t, store.Put(context.Background(), key, "{not toml"))

	_, err := NewTokenCache(store).Load(context.Background(), key)
	assert.ErrorContains(t, err, "decode token cache")
}
