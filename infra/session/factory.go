package session

import (
	"fmt"
	"time"

	coresession "github.com/telecare/oncall/core/session"
)

const (
	KindHMAC  = "hmac"
	KindOAuth = "oauth"
)

// Config selects and configures the credential issuer.
type Config struct {
	Kind       string      `json:"kind"`
	Secret     string      `json:"secret"`
	TTLSeconds int         `json:"ttl_seconds"`
	OAuth      OAuthConfig `json:"oauth"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Kind == "" {
		c.Kind = KindHMAC
	}
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 3600
	}
}

// Validate checks the selected issuer.
func (c Config) Validate() error {
	switch c.Kind {
	case KindHMAC:
		if c.Secret == "" {
			return fmt.Errorf("session secret is required for hmac issuer")
		}
	case KindOAuth:
		if c.OAuth.TokenURL == "" || c.OAuth.CredentialURL == "" {
			return fmt.Errorf("oauth token_url and credential_url are required")
		}
	default:
		return fmt.Errorf("unknown session issuer kind %s", c.Kind)
	}
	return nil
}

// NewIssuer constructs the configured issuer.
func NewIssuer(cfg Config) (coresession.Issuer, error) {
	switch cfg.Kind {
	case KindHMAC:
		return NewHMACIssuer(cfg.Secret, time.Duration(cfg.TTLSeconds)*time.Second)
	case KindOAuth:
		return NewOAuthIssuer(cfg.OAuth)
	default:
		return nil, fmt.Errorf("unknown session issuer kind %s", cfg.Kind)
	}
}
