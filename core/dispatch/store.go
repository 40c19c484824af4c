package dispatch

import (
	"sync"
	"time"

	"github.com/telecare/oncall/core/model"
	"github.com/telecare/oncall/core/session"
)

type status int

const (
	statusPending status = iota
	statusAccepted
	statusExhausted
)

func (s status) String() string {
	switch s {
	case statusPending:
		return "pending"
	case statusAccepted:
		return "accepted"
	case statusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// request is the mutable state of one in-flight dispatch. All fields below
// mu are guarded by it; the engine mutates them only through Store.Mutate.
type request struct {
	id          string
	candidates  []model.Responder
	sessionID   string
	credential  session.Credential
	requesterID string
	createdAt   time.Time

	mu sync.Mutex
	// cursor indexes the candidate currently being notified.
	cursor int
	// cycleCount is the number of completed walks over the candidate list.
	cycleCount int
	// attempt increments on every advance. Watchdog expirations and
	// in-flight send results carry the attempt they were scheduled for and
	// become no-ops when the counter has moved on.
	attempt uint64
	status  status
	// watchdog is the single armed timeout, nil when disarmed.
	watchdog *time.Timer
	// inviteSentAt is when the current candidate's invitation was
	// delivered, used to measure response latency.
	inviteSentAt time.Time
}

// disarmWatchdog stops and clears the armed timer. Disarming an already
// fired or absent watchdog is a no-op. Caller holds r.mu.
func (r *request) disarmWatchdog() {
	if r.watchdog != nil {
		r.watchdog.Stop()
		r.watchdog = nil
	}
}

// Store holds every in-flight request keyed by request ID. Records for
// resolved requests are removed; different request IDs are fully
// independent.
type Store struct {
	mu   sync.RWMutex
	reqs map[string]*request
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{reqs: make(map[string]*request)}
}

// Create inserts a new pending request. It fails with ErrDuplicateRequest
// if the ID is already present.
func (s *Store) Create(id string, candidates []model.Responder, sessionID string, cred session.Credential, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reqs[id]; ok {
		return ErrDuplicateRequest
	}
	s.reqs[id] = &request{
		id:          id,
		candidates:  candidates,
		sessionID:   sessionID,
		credential:  cred,
		requesterID: requesterID,
		createdAt:   time.Now(),
		status:      statusPending,
	}
	return nil
}

// Mutate applies fn to the record under its lock, serializing it against
// every other mutation of the same request. It fails with
// ErrRequestNotFound if the ID is absent. fn must not block on I/O.
func (s *Store) Mutate(id string, fn func(*request)) error {
	s.mu.RLock()
	r, ok := s.reqs[id]
	s.mu.RUnlock()
	if !ok {
		return ErrRequestNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
	return nil
}

// Remove deletes the record. Removing an absent ID is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.reqs, id)
	s.mu.Unlock()
}

// Len returns the number of in-flight requests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reqs)
}

// View is a read-only snapshot of a request, exposed for observability.
type View struct {
	RequestID  string `json:"request_id"`
	Status     string `json:"status"`
	Cursor     int    `json:"cursor"`
	Cycle      int    `json:"cycle"`
	Candidates int    `json:"candidates"`
}

// Snapshot returns a point-in-time view of the request.
func (s *Store) Snapshot(id string) (View, error) {
	var v View
	err := s.Mutate(id, func(r *request) {
		v = View{
			RequestID:  r.id,
			Status:     r.status.String(),
			Cursor:     r.cursor,
			Cycle:      r.cycleCount,
			Candidates: len(r.candidates),
		}
	})
	return v, err
}
