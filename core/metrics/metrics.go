package metrics

import "time"

// Resolution summarizes the terminal outcome of one dispatch request.
type Resolution struct {
	RequestID   string
	Outcome     string
	ResponderID string
	Attempts    uint64
	Elapsed     time.Duration
	Time        time.Time
}

// Sink persists dispatch resolutions to a metrics backend.
type Sink interface {
	RecordResolution(Resolution) error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordResolution(Resolution) error { return nil }
