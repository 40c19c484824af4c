package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/telecare/oncall/core/metrics"
	"github.com/telecare/oncall/infra/logger"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordResolution(coremetrics.Resolution) error {
	r.count++
	return nil
}

type failSink struct {
	err error
}

func (f failSink) RecordResolution(coremetrics.Resolution) error {
	return f.err
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordResolution(coremetrics.Resolution{RequestID: "r1"}); err != nil {
		t.Fatalf("record resolution: %v", err)
	}
	if s1.count != 1 || s2.count != 1 {
		t.Fatalf("resolution not forwarded")
	}
}

func TestMultiSink_AllSinksAttempted(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordSink{}
	m := NewMultiSink(failSink{err: boom}, rec)
	err := m.RecordResolution(coremetrics.Resolution{RequestID: "r1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if rec.count != 1 {
		t.Fatalf("sink after a failure was skipped")
	}
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(logger.NopLogger{})
	if err := s.RecordResolution(coremetrics.Resolution{RequestID: "r1"}); err != nil {
		t.Fatalf("record resolution: %v", err)
	}
}
