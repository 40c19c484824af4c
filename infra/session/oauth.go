package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	coresession "github.com/telecare/oncall/core/session"
)

// OAuthConfig points the issuer at an external credential service protected
// by client-credentials OAuth.
type OAuthConfig struct {
	TokenURL      string   `json:"token_url"`
	ClientID      string   `json:"client_id"`
	ClientSecret  string   `json:"client_secret"`
	Scopes        []string `json:"scopes"`
	CredentialURL string   `json:"credential_url"`
}

// OAuthIssuer requests per-session credentials from an external real-time
// communication provider. The HTTP client transparently acquires and
// refreshes the service access token.
type OAuthIssuer struct {
	client *http.Client
	url    string
}

// NewOAuthIssuer creates the issuer.
func NewOAuthIssuer(cfg OAuthConfig) (*OAuthIssuer, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" || cfg.CredentialURL == "" {
		return nil, fmt.Errorf("token_url, client_id and credential_url are required")
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	client := cc.Client(context.Background())
	client.Timeout = 10 * time.Second
	return &OAuthIssuer{client: client, url: cfg.CredentialURL}, nil
}

type credentialRequest struct {
	SessionID string `json:"session_id"`
}

type credentialResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue requests a credential for the session.
func (i *OAuthIssuer) Issue(ctx context.Context, sessionID string) (coresession.Credential, error) {
	body, err := json.Marshal(credentialRequest{SessionID: sessionID})
	if err != nil {
		return coresession.Credential{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return coresession.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := i.client.Do(req)
	if err != nil {
		return coresession.Credential{}, fmt.Errorf("credential request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return coresession.Credential{}, fmt.Errorf("credential service status %d", resp.StatusCode)
	}
	var cr credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return coresession.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	if cr.Token == "" {
		return coresession.Credential{}, fmt.Errorf("credential service returned empty token")
	}
	return coresession.Credential{Token: cr.Token, ExpiresAt: cr.ExpiresAt}, nil
}
