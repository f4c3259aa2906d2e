package toml

import (
	"fmt"
	"time"
)

const currentSchemaVersion = 1

type tokenSchema struct {
	Version     int       `toml:"version"`
	AccessToken string    `toml:"access_token"`
	IDToken     string    `toml:"id_token,omitempty"`
	IssuedAt    time.Time `toml:"issued_at"`
	ExpiresAt   time.Time `toml:"expires_at"`
}

func (s *tokenSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s tokenSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported token cache schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}
