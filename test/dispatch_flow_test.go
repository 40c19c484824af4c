package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/telecare/oncall/api/consult"
	coredirectory "github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/dispatch"
	"github.com/telecare/oncall/core/dispatch/logging"
	"github.com/telecare/oncall/core/model"
	corenotify "github.com/telecare/oncall/core/notify"
	"github.com/telecare/oncall/infra/directory"
	"github.com/telecare/oncall/infra/logger"
	"github.com/telecare/oncall/infra/session"
	"github.com/telecare/oncall/internal/eventbus"
)

type capturedInvite struct {
	Address    string
	Invitation model.Invitation
}

type channelSender struct {
	mu      sync.Mutex
	invites chan capturedInvite
	fail    map[string]corenotify.FailKind
}

func newChannelSender() *channelSender {
	return &channelSender{
		invites: make(chan capturedInvite, 16),
		fail:    make(map[string]corenotify.FailKind),
	}
}

func (s *channelSender) Send(_ context.Context, address string, inv model.Invitation) error {
	s.mu.Lock()
	kind, failing := s.fail[address]
	s.mu.Unlock()
	if failing {
		return &corenotify.Error{Kind: kind}
	}
	s.invites <- capturedInvite{Address: address, Invitation: inv}
	return nil
}

func (s *channelSender) failAddress(address string, kind corenotify.FailKind) {
	s.mu.Lock()
	s.fail[address] = kind
	s.mu.Unlock()
}

func (s *channelSender) next(t *testing.T) capturedInvite {
	t.Helper()
	select {
	case inv := <-s.invites:
		return inv
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for invitation")
		return capturedInvite{}
	}
}

func seedDirectory(t *testing.T, dir coredirectory.Admin) {
	t.Helper()
	ctx := context.Background()
	entries := []coredirectory.Entry{
		{Responder: model.Responder{ID: "doc-a", Name: "Alice", Language: "fr", Address: "tok-a"}, Available: true},
		{Responder: model.Responder{ID: "doc-b", Name: "Bob", Language: "fr", Address: "tok-b"}, Available: true},
	}
	for _, e := range entries {
		if err := dir.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestDispatchFlowOverHTTP(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	seedDirectory(t, dir)
	sender := newChannelSender()
	issuer, err := session.NewHMACIssuer("flow-secret", time.Minute)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	bus := eventbus.New()
	defer bus.Close()

	eng, err := dispatch.NewEngine(dir, sender, issuer, time.Minute, 2, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	audit, err := logging.NewJSONLStore(filepath.Join(t.TempDir(), "resolutions.log"))
	if err != nil {
		t.Fatalf("audit store: %v", err)
	}
	obs := logging.NewObserver(bus, audit, logger.NopLogger{})
	obsCtx, cancelObs := context.WithCancel(context.Background())
	defer cancelObs()
	go obs.Run(obsCtx)

	srv := httptest.NewServer(consult.NewHandler(eng, logger.NopLogger{}))
	defer srv.Close()

	// Patient requests a French-speaking responder.
	resp := postJSON(t, srv.URL+"/api/consult", map[string]string{
		"language": "fr", "requester_id": "pat-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("consult status %d", resp.StatusCode)
	}
	var created struct {
		RequestID  string `json:"request_id"`
		SessionID  string `json:"session_id"`
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_ = resp.Body.Close()
	if created.RequestID == "" || created.Credential == "" {
		t.Fatalf("incomplete ticket %+v", created)
	}
	if got, err := issuer.Verify(created.Credential); err != nil || got != created.SessionID {
		t.Fatalf("credential does not verify: %v", err)
	}

	// First candidate is invited and declines over the API.
	first := sender.next(t)
	if first.Address != "tok-a" {
		t.Fatalf("expected first invite to tok-a, got %s", first.Address)
	}
	if first.Invitation.RequestID != created.RequestID || first.Invitation.SessionID != created.SessionID {
		t.Fatalf("invitation does not match ticket: %+v", first.Invitation)
	}
	resp = postJSON(t, srv.URL+"/api/consult/respond", map[string]any{
		"request_id": created.RequestID, "accepted": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("respond status %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// Engine moves on to the second candidate, who accepts.
	second := sender.next(t)
	if second.Address != "tok-b" {
		t.Fatalf("expected second invite to tok-b, got %s", second.Address)
	}
	resp = postJSON(t, srv.URL+"/api/consult/respond", map[string]any{
		"request_id": created.RequestID, "accepted": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The request is resolved: status lookups no longer find it.
	statusResp, err := http.Get(srv.URL + "/api/consult/status?request_id=" + created.RequestID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	_ = statusResp.Body.Close()
	if statusResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected resolved request to be gone, got %d", statusResp.StatusCode)
	}

	// The audit observer records the resolution.
	recs := waitForAudit(t, audit, 1)
	if recs[0].RequestID != created.RequestID || recs[0].Outcome != "accepted" || recs[0].ResponderID != "doc-b" {
		t.Fatalf("unexpected audit record %+v", recs[0])
	}
}

func TestDispatchFlow_StaleAddressPrunesDirectory(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	seedDirectory(t, dir)
	sender := newChannelSender()
	sender.failAddress("tok-a", corenotify.StaleAddress)
	issuer, err := session.NewHMACIssuer("flow-secret", time.Minute)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}

	eng, err := dispatch.NewEngine(dir, sender, issuer, time.Minute, 2, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	if _, err := eng.CreateAndDispatch(context.Background(), coredirectory.Criterion{Language: "fr"}, "pat-1"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// The stale first candidate is skipped without a watchdog wait.
	inv := sender.next(t)
	if inv.Address != "tok-b" {
		t.Fatalf("expected fallthrough to tok-b, got %s", inv.Address)
	}

	// The dead address is eventually removed from the directory.
	deadline := time.Now().Add(2 * time.Second)
	for {
		res, err := dir.Lookup(context.Background(), coredirectory.Criterion{Language: "fr"})
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if len(res) == 1 && res[0].ID == "doc-b" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale address not invalidated: %+v", res)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForAudit(t *testing.T, store logging.LogStore, n int) []logging.LogRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		recs, err := store.Query(context.Background(), logging.LogQuery{})
		if err != nil {
			t.Fatalf("query audit: %v", err)
		}
		if len(recs) >= n {
			return recs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d audit records, have %d", n, len(recs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
