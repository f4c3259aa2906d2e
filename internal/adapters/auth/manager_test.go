package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

var managerNow = time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(domain.LoginResult), args.Error(1)
}

type memoryCache struct {
	entries map[string]domain.CredentialLease
	loadErr error
	cleared []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.CredentialLease{}}
}

func (c *memoryCache) Load(_ context.Context, key string) (domain.CredentialLease, error) {
	if c.loadErr != nil {
		return domain.CredentialLease{}, c.loadErr
	}
	lease, ok := c.entries[key]
	if !ok {
		return domain.CredentialLease{}, domain.ErrTokenNotCached
	}
	return lease, nil
}

func (c *memoryCache) Save(_ context.Context, key string, lease domain.CredentialLease) error {
	c.entries[key] = lease
	return nil
}

func (c *memoryCache) Clear(_ context.Context, key string) error {
	c.cleared = append(c.cleared, key)
	delete(c.entries, key)
	return nil
}

func loginResult(token string) domain.LoginResult {
	return domain.LoginResult{AccessToken: token, IDToken: "id-" + token, ExpiresIn: time.Hour}
}

func TestNewManagerValidatesCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewManager(Config{}, nil)
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)

	_, err = NewManager(Config{Username: "alice smith"}, nil)
	assert.ErrorContains(t, err, "must not contain spaces")

	_, err = NewManager(Config{PAT: "zpat_123"}, nil)
	assert.NoError(t, err)
}

func TestManagerPrefersPAT(t *testing.T) {
	t.Parallel()

	login := &mockAuthenticator{}
	manager, err := NewManager(Config{Username: "alice", Password: "pw", PAT: "zpat_123"}, login)
	require.NoError(t, err)

	token, err := manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "zpat_123", token)
	assert.True(t, manager.UsesPAT())

	require.NoError(t, manager.Refresh(context.Background()))
	login.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestManagerUsesValidCachedToken(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	cache.entries["key"] = domain.CredentialLease{AccessToken: "cached", IssuedAt: managerNow.Add(-10 * time.Minute), ExpiresAt: managerNow.Add(50 * time.Minute)}
	login := &mockAuthenticator{}

	manager, err := NewManager(Config{Username: "alice"}, login, WithCache(cache, "key"), WithClock(&stepClock{now: managerNow}))
	require.NoError(t, err)

	token, err := manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	login.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestManagerLogsInWhenCacheExpired(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	cache.entries["key"] = domain.CredentialLease{AccessToken: "stale", ExpiresAt: managerNow.Add(-time.Second)}
	login := &mockAuthenticator{}
	login.On("Login", mock.Anything, "alice", "pw").Return(loginResult("fresh"), nil).Once()

	manager, err := NewManager(Config{Username: "alice", Password: "pw"}, login, WithCache(cache, "key"), WithClock(&stepClock{now: managerNow}))
	require.NoError(t, err)

	token, err := manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, managerNow.Add(time.Hour), cache.entries["key"].ExpiresAt)

	token, err = manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	login.AssertExpectations(t)
}

func TestManagerClearsUnreadableCache(t *testing.T) {
	t.Parallel()

	cache := newMemoryCache()
	cache.loadErr = errors.New("decode token cache: garbage")
	login := &mockAuthenticator{}
	login.On("Login", mock.Anything, "alice", "pw").Return(loginResult("fresh"), nil).Once()

	manager, err := NewManager(Config{Username: "alice", Password: "pw"}, login, WithCache(cache, "key"))
	require.NoError(t, err)

	_, err = manager.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"key"}, cache.cleared)
}

func TestManagerPromptsForMissingPassword(t *testing.T) {
	t.Parallel()

	prompts := 0
	login := &mockAuthenticator{}
	login.On("Login", mock.Anything, "alice", "typed").Return(loginResult("fresh"), nil).Twice()
	clock := &stepClock{now: managerNow}

	manager, err := NewManager(Config{Username: "alice"}, login, WithClock(clock), WithPasswordPrompt(func(context.Context) (string, error) {
		prompts++
		return "typed", nil
	}))
	require.NoError(t, err)

	_, err = manager.Token(context.Background())
	require.NoError(t, err)

	clock.now = clock.now.Add(55 * time.Minute)
	require.NoError(t, manager.Refresh(context.Background()))

	assert.Equal(t, 1, prompts)
	login.AssertExpectations(t)
}

func TestManagerWithoutPassword(t *testing.T) {
	t.Parallel()

	manager, err := NewManager(Config{Username: "alice"}, &mockAuthenticator{})
	require.NoError(t, err)

	_, err = manager.Token(context.Background())
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestManagerRefreshHonoursMargin(t *testing.T) {
	t.Parallel()

	clock := &stepClock{now: managerNow}
	login := &mockAuthenticator{}
	login.On("Login", mock.Anything, "alice", "pw").Return(loginResult("first"), nil).Once()
	login.On("Login", mock.Anything, "alice", "pw").Return(loginResult("second"), nil).Once()

	manager, err := NewManager(Config{Username: "alice", Password: "pw"}, login, WithClock(clock))
	require.NoError(t, err)

	_, err = manager.Token(context.Background())
	require.NoError(t, err)

	clock.now = managerNow.Add(49 * time.Minute)
	require.NoError(t, manager.Refresh(context.Background()))
	assert.Equal(t, "first", manager.Lease().AccessToken)

	clock.now = managerNow.Add(50 * time.Minute)
	require.NoError(t, manager.Refresh(context.Background()))
	assert.Equal(t, "second", manager.Lease().AccessToken)
	assert.Equal(t, clock.now.Add(time.Hour), manager.Lease().ExpiresAt)
	login.AssertExpectations(t)
}

func TestManagerRefreshReportsLoginFailure(t *testing.T) {
	t.Parallel()

	login := &mockAuthenticator{}
	login.On("Login", mock.Anything, "alice", "pw").Return(domain.LoginResult{}, domain.ErrAuth).Once()

	manager, err := NewManager(Config{Username: "alice", Password: "pw"}, login)
	require.NoError(t, err)

	err = manager.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.ErrorContains(t, err, "login as alice")
}
