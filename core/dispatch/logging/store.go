// Package logging persists an audit trail of resolved dispatch requests.
package logging

import (
	"context"
	"time"
)

// LogRecord captures the terminal outcome of one dispatch request.
type LogRecord struct {
	Timestamp   time.Time     `json:"timestamp"`
	RequestID   string        `json:"request_id"`
	Outcome     string        `json:"outcome"`
	ResponderID string        `json:"responder_id,omitempty"`
	Attempts    uint64        `json:"attempts"`
	Elapsed     time.Duration `json:"elapsed"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start       time.Time
	End         time.Time
	Outcome     string
	ResponderID string
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
