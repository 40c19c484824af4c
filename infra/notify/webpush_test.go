package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	corenotify "github.com/telecare/oncall/core/notify"
	"github.com/telecare/oncall/infra/logger"
)

func TestWebPushSender_Delivers(t *testing.T) {
	var got pushRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewWebPushSender(WebPushConfig{GatewayURL: srv.URL, APIKey: "k"}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if err := s.Send(context.Background(), "tok-a", invitation()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "tok-a" || got.Data.RequestID != "r1" {
		t.Fatalf("wrong request: %+v", got)
	}
	if auth != "Bearer k" {
		t.Fatalf("missing api key header: %q", auth)
	}
}

func TestWebPushSender_GoneTokenIsStale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s, err := NewWebPushSender(WebPushConfig{GatewayURL: srv.URL}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	err = s.Send(context.Background(), "tok-a", invitation())
	if !corenotify.IsStale(err) {
		t.Fatalf("expected stale address error, got %v", err)
	}
}

func TestWebPushSender_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := NewWebPushSender(WebPushConfig{GatewayURL: srv.URL}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	err = s.Send(context.Background(), "tok-a", invitation())
	if err == nil || corenotify.IsStale(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestNewSender_UnknownKind(t *testing.T) {
	if _, err := NewSender(Config{Kind: "carrier-pigeon"}, logger.NopLogger{}); err == nil {
		t.Fatalf("expected error")
	}
}
