package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/telecare/oncall/core/model"
)

// Sender performs one push delivery attempt to a responder device.
// Delivery is at most once per attempt; the engine retries across
// candidates, never across transport failures of the same attempt.
type Sender interface {
	Send(ctx context.Context, address string, inv model.Invitation) error
}

// FailKind classifies a delivery failure.
type FailKind int

const (
	// Transient covers transport errors that say nothing about the
	// validity of the address.
	Transient FailKind = iota
	// StaleAddress means the delivery token is no longer registered and
	// should be invalidated in the directory.
	StaleAddress
)

func (k FailKind) String() string {
	switch k {
	case StaleAddress:
		return "stale_address"
	default:
		return "transient"
	}
}

// Error is a typed delivery failure returned by Sender implementations.
type Error struct {
	Kind FailKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsStale reports whether err is a stale-address delivery failure.
func IsStale(err error) bool {
	var ne *Error
	return errors.As(err, &ne) && ne.Kind == StaleAddress
}
