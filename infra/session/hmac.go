// Package session provides session credential issuers.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	coresession "github.com/telecare/oncall/core/session"
)

// HMACIssuer mints self-contained credentials signed with a shared secret.
// The token is "<sessionID>.<expiry-unix>.<signature>"; responder clients
// hand it to the media server which verifies it with the same secret.
type HMACIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewHMACIssuer creates an issuer with the given shared secret and token
// lifetime.
func NewHMACIssuer(secret string, ttl time.Duration) (*HMACIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HMACIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a credential for the session.
func (i *HMACIssuer) Issue(ctx context.Context, sessionID string) (coresession.Credential, error) {
	expires := time.Now().Add(i.ttl)
	msg := sessionID + "." + strconv.FormatInt(expires.Unix(), 10)
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(msg))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return coresession.Credential{Token: msg + "." + sig, ExpiresAt: expires}, nil
}

// Verify checks a token produced by Issue and returns the session ID.
func (i *HMACIssuer) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed token")
	}
	sessionID, expStr, sig := parts[0], parts[1], parts[2]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed expiry")
	}
	if time.Now().After(time.Unix(exp, 0)) {
		return "", fmt.Errorf("token expired")
	}
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(sessionID + "." + expStr))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return "", fmt.Errorf("bad signature")
	}
	return sessionID, nil
}
