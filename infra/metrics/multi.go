package metrics

import (
	"errors"

	coremetrics "github.com/telecare/oncall/core/metrics"
)

// MultiSink fans records out to several sinks. Every sink is attempted;
// errors are joined.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordResolution forwards the record to every sink.
func (m *MultiSink) RecordResolution(r coremetrics.Resolution) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordResolution(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
