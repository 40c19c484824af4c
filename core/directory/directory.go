package directory

import (
	"context"

	"github.com/telecare/oncall/core/model"
)

// Directory resolves the set of responders eligible for a consultation and
// maintains their delivery addresses.
type Directory interface {
	// Lookup returns the responders matching the criterion that are
	// currently available and reachable. An empty result is not an error.
	Lookup(ctx context.Context, criterion Criterion) ([]model.Responder, error)

	// InvalidateAddress drops the stored delivery address for the given
	// responder after a stale-address delivery failure. Callers treat the
	// operation as best effort.
	InvalidateAddress(ctx context.Context, responderID string) error
}

// Criterion selects responders for a consultation request.
type Criterion struct {
	Language string
}

// Entry is a directory listing row, including responders that are currently
// unavailable or unreachable.
type Entry struct {
	model.Responder
	Available bool
}

// Admin extends Directory with the management operations used by the CLI
// and the responders API.
type Admin interface {
	Directory
	Upsert(ctx context.Context, e Entry) error
	SetAvailability(ctx context.Context, responderID string, available bool) error
	List(ctx context.Context) ([]Entry, error)
}
