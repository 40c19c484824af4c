package events

import (
	"time"

	"github.com/telecare/oncall/core/model"
)

// InviteEvent is published for each invitation delivery attempt.
type InviteEvent struct {
	RequestID   string
	ResponderID string
	Attempt     uint64
	Err         error
}

// AdvanceEvent is published when the engine moves past a candidate.
type AdvanceEvent struct {
	RequestID   string
	ResponderID string
	Reason      model.Reason
	Cycle       int
}

// ResolvedEvent is published exactly once per request, on resolution.
type ResolvedEvent struct {
	RequestID   string
	Outcome     model.Outcome
	ResponderID string // accepting responder, empty on exhaustion
	Attempts    uint64
	Elapsed     time.Duration
}
