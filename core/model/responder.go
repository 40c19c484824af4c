package model

import "fmt"

// Responder is an on-call practitioner eligible to receive call invitations.
type Responder struct {
	ID       string
	Name     string
	Language string
	// Address is the opaque push delivery token registered by the
	// responder's device. An empty address means the responder is not
	// reachable and must be skipped at lookup time.
	Address string
}

// Validate checks that the responder can be dispatched to.
func (r Responder) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("responder id is required")
	}
	if r.Address == "" {
		return fmt.Errorf("responder %s has no delivery address", r.ID)
	}
	return nil
}

// Decision is a responder's answer to a call invitation.
type Decision int

const (
	DecisionAccept Decision = iota
	DecisionDecline
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionDecline:
		return "decline"
	default:
		return "unknown"
	}
}

// Reason explains why the engine moved past a candidate.
type Reason int

const (
	ReasonTimeout Reason = iota
	ReasonDeclined
	ReasonDeliveryFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonDeclined:
		return "declined"
	case ReasonDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a dispatch request.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}
