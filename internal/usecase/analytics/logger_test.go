package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
)

type memWriter struct {
	mu       sync.Mutex
	records  []query.Record
	trimmed  []time.Time
	appendFn func() error
	// gate blocks Append until closed.
	gate chan struct{}
}

func (m *memWriter) Append(_ context.Context, rec query.Record) error {
	if m.gate != nil {
		<-m.gate
	}
	if m.appendFn != nil {
		if err := m.appendFn(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memWriter) Trim(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed = append(m.trimmed, before)
	return 0, nil
}

func (m *memWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func record(text string, ts time.Time) query.Record {
	return query.New(text, mode.Hybrid, filter.Filters{}, 3, 12*time.Millisecond, "user-1", ts)
}

func closeLogger(t *testing.T, l *AsyncLogger) {
	t.Helper()
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAsyncLogger_WritesAndDrainsOnClose(t *testing.T) {
	w := &memWriter{}
	l := NewAsyncLogger(w, LoggerConfig{QueueSize: 16}, nil)

	for _, q := range []string{"a", "b", "c"} {
		l.Log(record(q, time.Now()))
	}
	closeLogger(t, l)

	if n := w.count(); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
	if w.records[0].Text() != "a" || w.records[2].Text() != "c" {
		t.Errorf("records out of order: %s..%s", w.records[0].Text(), w.records[2].Text())
	}
}

func TestAsyncLogger_DropsWhenFull(t *testing.T) {
	w := &memWriter{gate: make(chan struct{})}
	l := NewAsyncLogger(w, LoggerConfig{QueueSize: 1}, nil)

	// the worker may hold one record while blocked; the queue holds one more
	for range 5 {
		l.Log(record("q", time.Now()))
	}
	close(w.gate)
	closeLogger(t, l)

	if n := w.count(); n < 1 || n > 2 {
		t.Errorf("expected 1 or 2 records written, got %d", n)
	}
}

func TestAsyncLogger_WriteFailureIsSwallowed(t *testing.T) {
	calls := 0
	w := &memWriter{appendFn: func() error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	}}
	l := NewAsyncLogger(w, LoggerConfig{}, nil)

	l.Log(record("lost", time.Now()))
	l.Log(record("kept", time.Now()))
	closeLogger(t, l)

	if n := w.count(); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
	if got := w.records[0].Text(); got != "kept" {
		t.Errorf("record = %s, want kept", got)
	}
}

func TestAsyncLogger_LogAfterCloseIsDropped(t *testing.T) {
	w := &memWriter{}
	l := NewAsyncLogger(w, LoggerConfig{}, nil)
	closeLogger(t, l)
	closeLogger(t, l)

	l.Log(record("late", time.Now()))
	if n := w.count(); n != 0 {
		t.Errorf("expected nothing written after close, got %d", n)
	}
}

func TestAsyncLogger_TrimsOnStart(t *testing.T) {
	w := &memWriter{}
	l := NewAsyncLogger(w, LoggerConfig{Retention: 24 * time.Hour, TrimInterval: time.Hour}, nil)
	closeLogger(t, l)

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.trimmed) != 1 {
		t.Fatalf("expected one trim, got %d", len(w.trimmed))
	}
	want := time.Now().Add(-24 * time.Hour)
	if d := want.Sub(w.trimmed[0]).Abs(); d > time.Minute {
		t.Errorf("trim cutoff %v is %v away from %v", w.trimmed[0], d, want)
	}
}

func TestAsyncLogger_CloseHonorsContext(t *testing.T) {
	w := &memWriter{gate: make(chan struct{})}
	defer close(w.gate)
	l := NewAsyncLogger(w, LoggerConfig{}, nil)
	l.Log(record("stuck", time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
