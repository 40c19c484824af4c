package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/telecare/oncall/core/logger"
	"github.com/telecare/oncall/core/model"
	corenotify "github.com/telecare/oncall/core/notify"
)

// WebPushConfig defines the push gateway endpoint.
type WebPushConfig struct {
	GatewayURL     string `json:"gateway_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// WebPushSender delivers invitations through an HTTP push gateway. A 404 or
// 410 response means the device token is no longer registered.
type WebPushSender struct {
	url    string
	apiKey string
	client *http.Client
	log    logger.Logger
}

// NewWebPushSender creates a sender for the configured gateway.
func NewWebPushSender(cfg WebPushConfig, log logger.Logger) (*WebPushSender, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("gateway_url is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebPushSender{
		url:    cfg.GatewayURL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

type pushRequest struct {
	To   string           `json:"to"`
	Data model.Invitation `json:"data"`
}

// Send posts the invitation to the gateway.
func (s *WebPushSender) Send(ctx context.Context, address string, inv model.Invitation) error {
	body, err := json.Marshal(pushRequest{To: address, Data: inv})
	if err != nil {
		return &corenotify.Error{Kind: corenotify.Transient, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &corenotify.Error{Kind: corenotify.Transient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &corenotify.Error{Kind: corenotify.Transient, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		s.log.Debugf("pushed invite %s to gateway", inv.RequestID)
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return &corenotify.Error{
			Kind: corenotify.StaleAddress,
			Err:  fmt.Errorf("gateway status %d", resp.StatusCode),
		}
	default:
		return &corenotify.Error{
			Kind: corenotify.Transient,
			Err:  fmt.Errorf("gateway status %d", resp.StatusCode),
		}
	}
}
