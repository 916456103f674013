package config

import (
	"time"
)

const (
	// DevelopmentSessionSecret signs session cookies when no secret is configured.
	DevelopmentSessionSecret = "dev-secret-key"

	defaultSessionTTL         = 24 * time.Hour
	defaultSessionMaxSessions = 10000
)

type SessionConfig struct {
	Secret       string        `yaml:"secret" json:"-"`
	TTL          time.Duration `yaml:"ttl" json:"ttl"`
	SecureCookie bool          `yaml:"secureCookie" json:"secureCookie"`
	MaxSessions  int           `yaml:"maxSessions" json:"maxSessions"`
}

func (s *SessionConfig) applyDefaults() {
	if s.Secret == "" {
		s.Secret = DevelopmentSessionSecret
	}
	if s.TTL == 0 {
		s.TTL = defaultSessionTTL
	}
	if s.MaxSessions == 0 {
		s.MaxSessions = defaultSessionMaxSessions
	}
}

// UsesDevelopmentSecret reports whether cookies are signed with the
// well-known development secret.
func (s *SessionConfig) UsesDevelopmentSecret() bool {
	return s.Secret == DevelopmentSessionSecret
}
