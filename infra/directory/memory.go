package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	coredirectory "github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/model"
)

// MemoryDirectory is an in-memory directory used in tests and small
// deployments.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]coredirectory.Entry
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]coredirectory.Entry)}
}

// Lookup returns available, reachable responders for the criterion sorted
// by name.
func (d *MemoryDirectory) Lookup(ctx context.Context, c coredirectory.Criterion) ([]model.Responder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var res []model.Responder
	for _, e := range d.entries {
		if e.Language == c.Language && e.Available && e.Address != "" {
			res = append(res, e.Responder)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// InvalidateAddress clears the stored delivery address for the responder.
func (d *MemoryDirectory) InvalidateAddress(ctx context.Context, responderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[responderID]
	if !ok {
		return fmt.Errorf("unknown responder %s", responderID)
	}
	e.Address = ""
	d.entries[responderID] = e
	return nil
}

// Upsert inserts or replaces a responder entry.
func (d *MemoryDirectory) Upsert(ctx context.Context, e coredirectory.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("responder id is required")
	}
	d.mu.Lock()
	d.entries[e.ID] = e
	d.mu.Unlock()
	return nil
}

// SetAvailability toggles whether the responder may receive invitations.
func (d *MemoryDirectory) SetAvailability(ctx context.Context, responderID string, available bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[responderID]
	if !ok {
		return fmt.Errorf("unknown responder %s", responderID)
	}
	e.Available = available
	d.entries[responderID] = e
	return nil
}

// List returns every directory entry sorted by name.
func (d *MemoryDirectory) List(ctx context.Context) ([]coredirectory.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]coredirectory.Entry, 0, len(d.entries))
	for _, e := range d.entries {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}
