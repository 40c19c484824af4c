package dispatch

import "errors"

var (
	// ErrNoCandidates is returned by CreateAndDispatch when the directory
	// lookup yields no reachable responder. No request is created.
	ErrNoCandidates = errors.New("dispatch: no candidates available")

	// ErrInvalidRequest is returned by RespondToCall for an unknown or
	// already resolved request ID.
	ErrInvalidRequest = errors.New("dispatch: invalid request")

	// ErrDuplicateRequest is returned by the store when a request ID is
	// created twice.
	ErrDuplicateRequest = errors.New("dispatch: duplicate request id")

	// ErrRequestNotFound is returned by the store for an unknown request ID.
	ErrRequestNotFound = errors.New("dispatch: request not found")
)
