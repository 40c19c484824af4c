// Package dispatch implements the core logic for routing a consultation
// request to one of several candidate responders.
//
// Each request carries an ordered candidate list. The engine pushes a call
// invitation to the candidate under the cursor, arms a response watchdog and
// waits for one of three events: an explicit accept, an explicit decline, or
// the watchdog expiring. Declines, timeouts and delivery failures all funnel
// through a single advance operation that moves the cursor to the next
// candidate, wrapping over the list until a configured number of passes is
// spent, at which point the request resolves as exhausted.
//
// Key components:
//   - Engine: orchestrates invitations, watchdogs and resolution.
//   - Store: holds in-flight request state, serialized per request.
//   - CandidateRanker: optional ordering of candidates by responsiveness.
//
// Concurrency model: an accept arriving over HTTP and a watchdog firing for
// the same request race by construction. Every entry point re-checks the
// request status under the record lock, and watchdogs carry the attempt
// number they were armed for, so a stale trigger is a no-op rather than a
// double advance. Push delivery happens outside the record lock.
//
// Usage example:
//
//	engine, err := dispatch.NewEngine(dir, sender, issuer,
//	        30*time.Second, 2, bus, log)
//	if err != nil {
//	        log.Fatalf("failed to create engine: %v", err)
//	}
//	ticket, err := engine.CreateAndDispatch(ctx, criterion, requesterID)
package dispatch
