package toml

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

// TokenCache persists JWT leases as small TOML documents in a secret store,
// one entry per API host and user.
type TokenCache struct {
	store ports.SecretStore
}

func NewTokenCache(store ports.SecretStore) *TokenCache {
	return &TokenCache{store: store}
}

// CacheKey names the cache entry for a user of an API endpoint.
func CacheKey(apiURL, username string) (string, error) {
	if username == "" {
		return "", errors.New("username is required to determine token cache key")
	}
	if strings.ContainsAny(username, " /\\") {
		return "", fmt.Errorf("invalid username %q for token cache", username)
	}

	host := apiURL
	if parsed, err := url.Parse(apiURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	host = strings.NewReplacer("/", "_", ":", "_").Replace(host)

	return fmt.Sprintf("zpool_token_%s_%s.toml", host, username), nil
}

func (c *TokenCache) Load(ctx context.Context, key string) (domain.CredentialLease, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CredentialLease{}, domain.ErrTokenNotCached
		}
		return domain.CredentialLease{}, fmt.Errorf("read token cache: %w", err)
	}

	var entry tokenSchema
	if err := toml.Unmarshal([]byte(data), &entry); err != nil {
		return domain.CredentialLease{}, fmt.Errorf("decode token cache: %w", err)
	}
	if err := entry.validateVersion(); err != nil {
		return domain.CredentialLease{}, err
	}
	if entry.AccessToken == "" {
		return domain.CredentialLease{}, domain.ErrTokenNotCached
	}

	return domain.CredentialLease{
		AccessToken: entry.AccessToken,
		IDToken:     entry.IDToken,
		IssuedAt:    entry.IssuedAt.UTC(),
		ExpiresAt:   entry.ExpiresAt.UTC(),
	}, nil
}

func (c *TokenCache) Save(ctx context.Context, key string, lease domain.CredentialLease) error {
	entry := tokenSchema{
		AccessToken: lease.AccessToken,
		IDToken:     lease.IDToken,
		IssuedAt:    lease.IssuedAt.UTC(),
		ExpiresAt:   lease.ExpiresAt.UTC(),
	}
	entry.applyDefaults()

	data, err := toml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode token cache: %w", err)
	}
	if err := c.store.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

func (c *TokenCache) Clear(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear token cache: %w", err)
	}
	return nil
}
