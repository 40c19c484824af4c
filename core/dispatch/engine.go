package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/events"
	"github.com/telecare/oncall/core/logger"
	"github.com/telecare/oncall/core/metrics"
	"github.com/telecare/oncall/core/model"
	"github.com/telecare/oncall/core/notify"
	"github.com/telecare/oncall/core/session"
	"github.com/telecare/oncall/internal/eventbus"
)

// anyAttempt disables the staleness check in advance. Explicit declines
// apply to whatever attempt is current; watchdogs and send results carry
// the attempt they were scheduled for.
const anyAttempt = ^uint64(0)

// CandidateRanker orders candidates before the first invitation is sent.
type CandidateRanker interface {
	Order([]model.Responder) []model.Responder
}

// ResponseObserver receives the outcome of every answered or expired
// invitation, used to build responsiveness statistics.
type ResponseObserver interface {
	RecordResponse(responderID string, latency time.Duration, accepted bool)
}

// Ticket is returned to the caller of CreateAndDispatch. Notification
// delivery proceeds asynchronously after the ticket is issued.
type Ticket struct {
	RequestID  string
	SessionID  string
	Credential session.Credential
}

// Engine advances each dispatch request through its candidate list until a
// responder accepts or the list is exhausted. Every trigger that can move a
// request forward (decline, watchdog expiry, delivery failure) funnels
// through advance, serialized per request by the store.
type Engine struct {
	store           *Store
	directory       directory.Directory
	sender          notify.Sender
	issuer          session.Issuer
	responseTimeout time.Duration
	sendTimeout     time.Duration
	maxPasses       int
	ranker          CandidateRanker
	observer        ResponseObserver
	sink            metrics.Sink
	bus             eventbus.EventBus
	log             logger.Logger
}

// NewEngine creates a new engine.
// responseTimeout defines how long a candidate may take to answer an
// invitation; if zero, a default of thirty seconds is used. maxPasses bounds
// the number of walks over the candidate list; if zero, two passes are
// allowed.
func NewEngine(dir directory.Directory, sender notify.Sender, issuer session.Issuer, responseTimeout time.Duration, maxPasses int, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if dir == nil || sender == nil || issuer == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	if responseTimeout <= 0 {
		responseTimeout = 30 * time.Second
	}
	if maxPasses <= 0 {
		maxPasses = 2
	}
	return &Engine{
		store:           NewStore(),
		directory:       dir,
		sender:          sender,
		issuer:          issuer,
		responseTimeout: responseTimeout,
		sendTimeout:     5 * time.Second,
		maxPasses:       maxPasses,
		bus:             bus,
		log:             log,
	}, nil
}

// SetRanker configures candidate ordering at request creation.
func (e *Engine) SetRanker(r CandidateRanker) { e.ranker = r }

// SetResponseObserver configures the receiver of per-candidate response
// outcomes.
func (e *Engine) SetResponseObserver(o ResponseObserver) { e.observer = o }

// SetMetricsSink configures the sink used to persist resolutions.
func (e *Engine) SetMetricsSink(s metrics.Sink) { e.sink = s }

// SetSendTimeout bounds a single delivery attempt.
func (e *Engine) SetSendTimeout(d time.Duration) {
	if d > 0 {
		e.sendTimeout = d
	}
}

// Pending returns the number of in-flight requests.
func (e *Engine) Pending() int { return e.store.Len() }

// Snapshot returns a read-only view of one request.
func (e *Engine) Snapshot(requestID string) (View, error) {
	return e.store.Snapshot(requestID)
}

// CreateAndDispatch resolves the criterion, creates the request and starts
// notifying candidates. The returned ticket carries the session credential
// the requester joins the call with; delivery of the first invitation is
// asynchronous relative to the caller.
func (e *Engine) CreateAndDispatch(ctx context.Context, criterion directory.Criterion, requesterID string) (Ticket, error) {
	found, err := e.directory.Lookup(ctx, criterion)
	if err != nil {
		return Ticket{}, fmt.Errorf("dispatch: candidate lookup: %w", err)
	}
	candidates := make([]model.Responder, 0, len(found))
	for _, c := range found {
		if err := c.Validate(); err != nil {
			e.log.Warnf("skipping candidate: %v", err)
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return Ticket{}, ErrNoCandidates
	}
	if e.ranker != nil {
		candidates = e.ranker.Order(candidates)
	}

	sessionID := uuid.NewString()
	cred, err := e.issuer.Issue(ctx, sessionID)
	if err != nil {
		return Ticket{}, fmt.Errorf("dispatch: issue credential: %w", err)
	}

	requestID := uuid.NewString()
	if err := e.store.Create(requestID, candidates, sessionID, cred, requesterID); err != nil {
		return Ticket{}, err
	}
	activeRequests.Inc()
	e.log.Infof("request %s created with %d candidates", requestID, len(candidates))

	go e.notifyCurrent(requestID)
	return Ticket{RequestID: requestID, SessionID: sessionID, Credential: cred}, nil
}

// RespondToCall applies a candidate's explicit answer. Accept resolves the
// request; Decline advances to the next candidate through the same path a
// watchdog expiry takes. Answers for unknown or already resolved requests
// fail with ErrInvalidRequest.
func (e *Engine) RespondToCall(requestID string, decision model.Decision) error {
	switch decision {
	case model.DecisionAccept:
		return e.accept(requestID)
	case model.DecisionDecline:
		if err := e.advance(requestID, model.ReasonDeclined, anyAttempt); err != nil {
			return ErrInvalidRequest
		}
		return nil
	default:
		return fmt.Errorf("dispatch: unknown decision %d", decision)
	}
}

func (e *Engine) accept(requestID string) error {
	var (
		accepted  bool
		responder model.Responder
		attempts  uint64
		createdAt time.Time
		latency   time.Duration
	)
	err := e.store.Mutate(requestID, func(r *request) {
		r.disarmWatchdog()
		if r.status != statusPending {
			return
		}
		r.status = statusAccepted
		accepted = true
		responder = r.candidates[r.cursor]
		attempts = r.attempt + 1
		createdAt = r.createdAt
		if !r.inviteSentAt.IsZero() {
			latency = time.Since(r.inviteSentAt)
		}
	})
	if err != nil || !accepted {
		return ErrInvalidRequest
	}
	if e.observer != nil {
		e.observer.RecordResponse(responder.ID, latency, true)
	}
	e.log.Infof("request %s accepted by %s", requestID, responder.ID)
	e.finish(requestID, model.OutcomeAccepted, responder.ID, attempts, createdAt)
	return nil
}

// notifyCurrent sends an invitation to the candidate under the cursor and
// arms the watchdog. It is invoked on every entry to the awaiting-response
// state and no-ops if the request resolved in the meantime. Delivery happens
// outside the record lock.
func (e *Engine) notifyCurrent(requestID string) {
	var (
		proceed   bool
		exhausted bool
		candidate model.Responder
		attempt   uint64
		attempts  uint64
		createdAt time.Time
		inv       model.Invitation
	)
	err := e.store.Mutate(requestID, func(r *request) {
		if r.status != statusPending {
			return
		}
		if r.cursor < 0 || r.cursor >= len(r.candidates) {
			// Defensive: a cursor past the end means the wrap logic was
			// bypassed. Resolve rather than panic on the index.
			r.status = statusExhausted
			exhausted = true
			attempts = r.attempt
			createdAt = r.createdAt
			return
		}
		candidate = r.candidates[r.cursor]
		attempt = r.attempt
		createdAt = r.createdAt
		inv = model.NewInvitation(r.id, r.sessionID, r.credential.Token, r.requesterID, candidate)
		proceed = true
	})
	if err != nil {
		return
	}
	if exhausted {
		e.finish(requestID, model.OutcomeExhausted, "", attempts, createdAt)
		return
	}
	if !proceed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.sendTimeout)
	sendErr := e.sender.Send(ctx, candidate.Address, inv)
	cancel()
	e.publish(events.InviteEvent{RequestID: requestID, ResponderID: candidate.ID, Attempt: attempt, Err: sendErr})

	if sendErr != nil {
		e.log.Warnf("invite delivery to %s failed: %v", candidate.ID, sendErr)
		if notify.IsStale(sendErr) {
			inviteFailures.WithLabelValues(notify.StaleAddress.String()).Inc()
			go e.invalidateAddress(candidate.ID)
		} else {
			inviteFailures.WithLabelValues(notify.Transient.String()).Inc()
		}
		// No watchdog for a candidate that was never reachable.
		_ = e.advance(requestID, model.ReasonDeliveryFailed, attempt)
		return
	}

	invitesSent.Inc()
	e.log.Debugf("invited %s for request %s", candidate.ID, requestID)
	_ = e.store.Mutate(requestID, func(r *request) {
		// The request may have been answered or advanced while the send
		// was in flight; arming a watchdog for a stale attempt would
		// double-advance later.
		if r.status != statusPending || r.attempt != attempt {
			return
		}
		r.disarmWatchdog()
		r.inviteSentAt = time.Now()
		r.watchdog = time.AfterFunc(e.responseTimeout, func() {
			_ = e.advance(requestID, model.ReasonTimeout, attempt)
		})
	})
}

// advance is the single chokepoint for moving past the current candidate.
// Once the trigger is confirmed live it disarms the watchdog, bumps the
// cursor and either re-enters notifyCurrent or resolves the request as
// exhausted once the pass limit is reached. A trigger carrying a stale
// attempt is a strict no-op: it must not touch the watchdog armed for the
// attempt that superseded it.
func (e *Engine) advance(requestID string, reason model.Reason, attempt uint64) error {
	var (
		advanced  bool
		exhausted bool
		previous  model.Responder
		cycle     int
		attempts  uint64
		createdAt time.Time
		latency   time.Duration
	)
	err := e.store.Mutate(requestID, func(r *request) {
		if r.status != statusPending {
			return
		}
		if attempt != anyAttempt && attempt != r.attempt {
			return
		}
		r.disarmWatchdog()
		previous = r.candidates[r.cursor]
		if !r.inviteSentAt.IsZero() {
			latency = time.Since(r.inviteSentAt)
			r.inviteSentAt = time.Time{}
		}
		r.attempt++
		r.cursor++
		if r.cursor == len(r.candidates) {
			r.cursor = 0
			r.cycleCount++
		}
		cycle = r.cycleCount
		advanced = true
		if r.cycleCount >= e.maxPasses {
			r.status = statusExhausted
			exhausted = true
			attempts = r.attempt
			createdAt = r.createdAt
		}
	})
	if err != nil {
		return err
	}
	if !advanced {
		return ErrInvalidRequest
	}

	advancesTotal.WithLabelValues(reason.String()).Inc()
	if e.observer != nil && reason != model.ReasonDeliveryFailed {
		e.observer.RecordResponse(previous.ID, latency, false)
	}
	e.publish(events.AdvanceEvent{RequestID: requestID, ResponderID: previous.ID, Reason: reason, Cycle: cycle})
	e.log.Debugf("request %s advanced past %s (%s)", requestID, previous.ID, reason)

	if exhausted {
		e.log.Infof("request %s exhausted after %d attempts", requestID, attempts)
		e.finish(requestID, model.OutcomeExhausted, "", attempts, createdAt)
		return nil
	}
	e.notifyCurrent(requestID)
	return nil
}

// finish removes the terminal record and publishes the resolution.
func (e *Engine) finish(requestID string, outcome model.Outcome, responderID string, attempts uint64, createdAt time.Time) {
	e.store.Remove(requestID)
	activeRequests.Dec()
	elapsed := time.Since(createdAt)
	resolutionDuration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
	e.publish(events.ResolvedEvent{
		RequestID:   requestID,
		Outcome:     outcome,
		ResponderID: responderID,
		Attempts:    attempts,
		Elapsed:     elapsed,
	})
	if e.sink != nil {
		rec := metrics.Resolution{
			RequestID:   requestID,
			Outcome:     outcome.String(),
			ResponderID: responderID,
			Attempts:    attempts,
			Elapsed:     elapsed,
			Time:        time.Now(),
		}
		if err := e.sink.RecordResolution(rec); err != nil {
			e.log.Errorf("resolution metrics error: %v", err)
		}
	}
}

// invalidateAddress asks the directory to drop a stale delivery address.
// Best effort: failures are logged and swallowed.
func (e *Engine) invalidateAddress(responderID string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.sendTimeout)
	defer cancel()
	if err := e.directory.InvalidateAddress(ctx, responderID); err != nil {
		e.log.Warnf("invalidate address for %s: %v", responderID, err)
	}
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
