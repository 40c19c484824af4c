// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - InviteEvent: invitation delivery attempt result
//   - AdvanceEvent: cursor movement to the next candidate
//   - ResolvedEvent: terminal outcome of a request
package events
