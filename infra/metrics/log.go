package metrics

import (
	coremetrics "github.com/telecare/oncall/core/metrics"
	"github.com/telecare/oncall/infra/logger"
)

// LogSink records resolutions through the application logger so outcomes
// stay visible even when no external metrics backend is configured.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// RecordResolution emits one structured log entry per resolution.
func (s *LogSink) RecordResolution(r coremetrics.Resolution) error {
	s.log.Debugw("call resolved", map[string]any{
		"request_id":   r.RequestID,
		"outcome":      r.Outcome,
		"responder_id": r.ResponderID,
		"attempts":     r.Attempts,
		"elapsed_ms":   r.Elapsed.Milliseconds(),
	})
	return nil
}
