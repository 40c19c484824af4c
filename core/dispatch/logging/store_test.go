package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func appendRaw(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteString(line)
	return err
}

func sampleRecords(base time.Time) []LogRecord {
	return []LogRecord{
		{Timestamp: base, RequestID: "r1", Outcome: "accepted", ResponderID: "doc-a", Attempts: 1, Elapsed: 2 * time.Second},
		{Timestamp: base.Add(time.Minute), RequestID: "r2", Outcome: "exhausted", Attempts: 6, Elapsed: 3 * time.Minute},
		{Timestamp: base.Add(2 * time.Minute), RequestID: "r3", Outcome: "accepted", ResponderID: "doc-b", Attempts: 3, Elapsed: 90 * time.Second},
	}
}

func testStore(t *testing.T, store LogStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, rec := range sampleRecords(base) {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := store.Query(ctx, LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	accepted, err := store.Query(ctx, LogQuery{Outcome: "accepted"})
	if err != nil {
		t.Fatalf("query outcome: %v", err)
	}
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted records, got %d", len(accepted))
	}

	byResponder, err := store.Query(ctx, LogQuery{ResponderID: "doc-b"})
	if err != nil {
		t.Fatalf("query responder: %v", err)
	}
	if len(byResponder) != 1 || byResponder[0].RequestID != "r3" {
		t.Fatalf("responder filter returned %+v", byResponder)
	}

	windowed, err := store.Query(ctx, LogQuery{
		Start: base.Add(30 * time.Second),
		End:   base.Add(90 * time.Second),
	})
	if err != nil {
		t.Fatalf("query window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].RequestID != "r2" {
		t.Fatalf("time window returned %+v", windowed)
	}
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "resolutions.log"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	testStore(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	testStore(t, store)
}

func TestJSONLStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolutions.log")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := store.Append(ctx, LogRecord{RequestID: "r1", Outcome: "accepted"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := appendRaw(path, "not json\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := store.Append(ctx, LogRecord{RequestID: "r2", Outcome: "exhausted"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err := store.Query(ctx, LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d records", len(res))
	}
}
