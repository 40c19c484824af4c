// Package consult exposes the consultation dispatch HTTP API.
package consult

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/dispatch"
	"github.com/telecare/oncall/core/logger"
	"github.com/telecare/oncall/core/model"
)

// Engine is the dispatch surface the handler consumes.
type Engine interface {
	CreateAndDispatch(ctx context.Context, criterion directory.Criterion, requesterID string) (dispatch.Ticket, error)
	RespondToCall(requestID string, decision model.Decision) error
	Snapshot(requestID string) (dispatch.View, error)
}

type requestBody struct {
	Language    string `json:"language"`
	RequesterID string `json:"requester_id"`
}

type requestResponse struct {
	Success   bool      `json:"success"`
	RequestID string    `json:"request_id"`
	SessionID string    `json:"session_id"`
	Cred      string    `json:"credential"`
	ExpiresAt time.Time `json:"credential_expires_at"`
}

type respondBody struct {
	RequestID string `json:"request_id"`
	Accepted  bool   `json:"accepted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns the consultation API. Routes:
//
//	POST /api/consult          request a responder
//	POST /api/consult/respond  answer a call invitation
//	GET  /api/consult/status   inspect an in-flight request
func NewHandler(engine Engine, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/consult", func(w http.ResponseWriter, r *http.Request) {
		handleRequest(engine, log, w, r)
	})
	mux.HandleFunc("/api/consult/respond", func(w http.ResponseWriter, r *http.Request) {
		handleRespond(engine, log, w, r)
	})
	mux.HandleFunc("/api/consult/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(engine, w, r)
	})
	return mux
}

func handleRequest(engine Engine, log logger.Logger, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	if body.Language == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "language is required"})
		return
	}
	ticket, err := engine.CreateAndDispatch(r.Context(), directory.Criterion{Language: body.Language}, body.RequesterID)
	switch {
	case errors.Is(err, dispatch.ErrNoCandidates):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no responders available"})
		return
	case err != nil:
		log.Errorf("create dispatch: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, requestResponse{
		Success:   true,
		RequestID: ticket.RequestID,
		SessionID: ticket.SessionID,
		Cred:      ticket.Credential.Token,
		ExpiresAt: ticket.Credential.ExpiresAt,
	})
}

func handleRespond(engine Engine, log logger.Logger, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var body respondBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
		return
	}
	if body.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request_id is required"})
		return
	}
	decision := model.DecisionDecline
	if body.Accepted {
		decision = model.DecisionAccept
	}
	if err := engine.RespondToCall(body.RequestID, decision); err != nil {
		if errors.Is(err, dispatch.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
			return
		}
		log.Errorf("respond to call: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func handleStatus(engine Engine, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	id := r.URL.Query().Get("request_id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request_id is required"})
		return
	}
	view, err := engine.Snapshot(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown request id"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
