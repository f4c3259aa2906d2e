package domain

import "time"

const (
	TokenLifetime = time.Hour
	RefreshMargin = 10 * time.Minute
)

// CredentialLease is a bearer token and the window in which it is valid.
type CredentialLease struct {
	AccessToken string
	IDToken     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

func (l CredentialLease) Valid(now time.Time) bool {
	return l.AccessToken != "" && now.Before(l.ExpiresAt)
}

// NeedsRefresh reports whether the lease expires within margin of now.
func (l CredentialLease) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return !l.Valid(now) || l.ExpiresAt.Sub(now) <= margin
}

type LoginResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

func (r LoginResult) Lease(now time.Time) CredentialLease {
	lifetime := r.ExpiresIn
	if lifetime <= 0 {
		lifetime = TokenLifetime
	}
	return CredentialLease{
		AccessToken: r.AccessToken,
		IDToken:     r.IDToken,
		IssuedAt:    now,
		ExpiresAt:   now.Add(lifetime),
	}
}
