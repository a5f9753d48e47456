// Package embcache memoizes text embeddings in the key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/omnisearch/internal/db"
	"github.com/kailas-cloud/omnisearch/internal/domain"
)

// Cache lookup outcomes, used as the "result" metric label.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultStale = "stale"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config scopes cache keys. Model and Dimensions are part of every key so a
// provider change never serves vectors of the old model.
type Config struct {
	KeyPrefix  string
	Model      string
	Dimensions int           // zero skips the length check on hits
	TTL        time.Duration // zero keeps entries forever
}

// Embedder is a caching domain.Embedder. Concurrent misses for the same text
// share one provider call.
type Embedder struct {
	next    domain.Embedder
	kv      kvStore
	ns      string
	dim     int
	ttl     time.Duration
	group   singleflight.Group
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps next. lookups may be nil; when set it is incremented with the
// hit, miss or stale label.
func New(next domain.Embedder, kv kvStore, cfg Config, lookups *prometheus.CounterVec, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	ns := fmt.Sprintf("%semb:%s:%d:", cfg.KeyPrefix, cfg.Model, cfg.Dimensions)
	return &Embedder{
		next:    next,
		kv:      kv,
		ns:      ns,
		dim:     cfg.Dimensions,
		ttl:     cfg.TTL,
		lookups: lookups,
		logger:  logger.With(zap.String("component", "embcache")),
	}
}

// Available reports the wrapped provider's availability.
func (e *Embedder) Available() bool { return domain.IsAvailable(e.next) }

// shared is one provider result handed to every caller of a flight. Token
// usage goes to whichever caller claims it first.
type shared struct {
	res     domain.EmbeddingResult
	claimed atomic.Bool
}

func (s *shared) take() domain.EmbeddingResult {
	if s.claimed.CompareAndSwap(false, true) {
		return s.res
	}
	return domain.EmbeddingResult{Embedding: s.res.Embedding}
}

// Embed serves text from the cache or the wrapped provider. Hits report zero
// tokens. Store failures only cost a provider call.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := e.key(text)
	if vec, outcome := e.load(ctx, key); outcome == resultHit {
		e.count(resultHit)
		return domain.EmbeddingResult{Embedding: vec}, nil
	} else if outcome == resultStale {
		e.count(resultStale)
	}
	e.count(resultMiss)

	v, err, _ := e.group.Do(key, func() (any, error) {
		res, err := e.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		e.save(ctx, key, res.Embedding)
		return &shared{res: res}, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	return v.(*shared).take(), nil
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.ns + hex.EncodeToString(sum[:])
}

// load returns the cached vector and resultHit, or a nil vector with
// resultMiss or resultStale.
func (e *Embedder) load(ctx context.Context, key string) ([]float32, string) {
	data, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, resultMiss
	case err != nil:
		e.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, resultMiss
	}

	vec, err := decodeVector(data)
	if err != nil {
		e.logger.Warn("Discarding cached embedding", zap.String("key", key), zap.Error(err))
		return nil, resultMiss
	}
	if e.dim > 0 && len(vec) != e.dim {
		e.logger.Debug("Cached embedding dimension changed",
			zap.String("key", key), zap.Int("cached", len(vec)), zap.Int("expected", e.dim))
		return nil, resultStale
	}
	return vec, resultHit
}

func (e *Embedder) save(ctx context.Context, key string, vec []float32) {
	if err := e.kv.Set(ctx, key, encodeVector(vec), e.ttl); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(outcome string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(outcome).Inc()
	}
}
