package session

import (
	"context"
	"time"
)

// Credential is a time-bounded token granting access to a call session.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be used.
func (c Credential) Valid() bool {
	return c.Token != "" && time.Now().Before(c.ExpiresAt)
}

// Issuer produces session credentials. The engine calls Issue once per
// request; the credential is stable for the request's lifetime.
type Issuer interface {
	Issue(ctx context.Context, sessionID string) (Credential, error)
}
