package embcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/db"
	"github.com/kailas-cloud/omnisearch/internal/domain"
)

type stubProvider struct {
	res     domain.EmbeddingResult
	err     error
	calls   atomic.Int32
	gate    chan struct{} // Embed blocks until closed, when set
	offline bool
}

func (p *stubProvider) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	p.calls.Add(1)
	if p.gate != nil {
		<-p.gate
	}
	return p.res, p.err
}

func (p *stubProvider) Available() bool { return !p.offline }

type entry struct {
	value []byte
	ttl   time.Duration
}

// memKV records writes; readErr and writeErr fail every Get or Set.
type memKV struct {
	mu       sync.Mutex
	data     map[string]entry
	reads    []string
	readErr  error
	writeErr error
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, key)
	if m.readErr != nil {
		return nil, m.readErr
	}
	e, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.data == nil {
		m.data = map[string]entry{}
	}
	m.data[key] = entry{value: value, ttl: ttl}
	return nil
}

func (m *memKV) only(t *testing.T) entry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) != 1 {
		t.Fatalf("expected one cached entry, have %d", len(m.data))
	}
	for _, e := range m.data {
		return e
	}
	return entry{}
}

func newTestEmbedder(p *stubProvider, cfg Config) (*Embedder, *memKV) {
	kv := &memKV{}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "omni:"
	}
	return New(p, kv, cfg, nil, nil), kv
}
