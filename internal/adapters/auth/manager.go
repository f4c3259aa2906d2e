package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

var ErrPasswordRequired = errors.New("password required: set ZPOOL_PASSWORD or run interactively")

// LeaseCache persists JWT leases between invocations.
type LeaseCache interface {
	Load(ctx context.Context, key string) (domain.CredentialLease, error)
	Save(ctx context.Context, key string, lease domain.CredentialLease) error
	Clear(ctx context.Context, key string) error
}

type Config struct {
	Username string
	Password string
	PAT      string
}

// Manager hands out bearer credentials. A personal access token always wins;
// otherwise a JWT is taken from memory, then from the cache, and finally
// obtained by logging in.
type Manager struct {
	cfg      Config
	login    ports.Authenticator
	cache    LeaseCache
	cacheKey string
	prompt   func(ctx context.Context) (string, error)
	clock    ports.Clock
	logger   *zap.Logger

	mu    sync.Mutex
	lease domain.CredentialLease
}

var (
	_ ports.CredentialRefresher = (*Manager)(nil)
	_ ports.LeaseHolder         = (*Manager)(nil)
)

type Option func(*Manager)

// WithCache enables the JWT cache under key.
func WithCache(cache LeaseCache, key string) Option {
	return func(m *Manager) {
		m.cache = cache
		m.cacheKey = key
	}
}

func WithPasswordPrompt(prompt func(ctx context.Context) (string, error)) Option {
	return func(m *Manager) { m.prompt = prompt }
}

func WithClock(clock ports.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(cfg Config, login ports.Authenticator, opts ...Option) (*Manager, error) {
	if strings.Contains(cfg.Username, " ") {
		return nil, errors.New("username must not contain spaces")
	}
	if cfg.PAT == "" && cfg.Username == "" {
		return nil, domain.ErrCredentialsMissing
	}

	m := &Manager{
		cfg:    cfg,
		login:  login,
		clock:  ports.SystemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cacheKey == "" {
		m.cache = nil
	}

	return m, nil
}

func (m *Manager) UsesPAT() bool {
	return m.cfg.PAT != ""
}

func (m *Manager) Token(ctx context.Context) (string, error) {
	if m.cfg.PAT != "" {
		return m.cfg.PAT, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if m.lease.Valid(now) {
		return m.lease.AccessToken, nil
	}

	if lease, ok := m.cachedLeaseLocked(ctx); ok && lease.Valid(now) {
		m.lease = lease
		return lease.AccessToken, nil
	}

	lease, err := m.loginLocked(ctx)
	if err != nil {
		return "", err
	}
	return lease.AccessToken, nil
}

// Refresh logs in again when the current lease is within the refresh margin
// of its expiry. It does nothing for personal access tokens.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.cfg.PAT != "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lease.NeedsRefresh(m.clock.Now(), domain.RefreshMargin) {
		return nil
	}

	_, err := m.loginLocked(ctx)
	return err
}

// Lease reports the lease currently held in memory.
func (m *Manager) Lease() domain.CredentialLease {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lease
}

func (m *Manager) cachedLeaseLocked(ctx context.Context) (domain.CredentialLease, bool) {
	if m.cache == nil {
		return domain.CredentialLease{}, false
	}

	lease, err := m.cache.Load(ctx, m.cacheKey)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenNotCached) {
			m.logger.Debug("discarding unreadable token cache", zap.String("key", m.cacheKey), zap.Error(err))
			if clearErr := m.cache.Clear(ctx, m.cacheKey); clearErr != nil {
				m.logger.Warn("clear token cache", zap.Error(clearErr))
			}
		}
		return domain.CredentialLease{}, false
	}
	return lease, true
}

func (m *Manager) loginLocked(ctx context.Context) (domain.CredentialLease, error) {
	password := m.cfg.Password
	if password == "" && m.prompt != nil {
		prompted, err := m.prompt(ctx)
		if err != nil {
			return domain.CredentialLease{}, fmt.Errorf("read password: %w", err)
		}
		password = prompted
	}
	if password == "" {
		return domain.CredentialLease{}, ErrPasswordRequired
	}

	result, err := m.login.Login(ctx, m.cfg.Username, password)
	if err != nil {
		return domain.CredentialLease{}, fmt.Errorf("login as %s: %w", m.cfg.Username, err)
	}
	m.cfg.Password = password

	m.lease = result.Lease(m.clock.Now())
	m.logger.Debug("logged in", zap.String("username", m.cfg.Username), zap.Time("expires_at", m.lease.ExpiresAt))

	if m.cache != nil {
		if err := m.cache.Save(ctx, m.cacheKey, m.lease); err != nil {
			m.logger.Warn("save token cache", zap.Error(err))
		}
	}
	return m.lease, nil
}
