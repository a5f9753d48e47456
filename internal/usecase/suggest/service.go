package suggest

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
	"github.com/kailas-cloud/omnisearch/internal/logger"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
)

// Provider generates suggestions from a language model.
type Provider interface {
	Suggest(ctx context.Context, q string, limit int) ([]string, error)
	Available() bool
}

// History reads prior queries, newest first.
type History interface {
	Recent(ctx context.Context, n int) ([]query.Record, error)
}

// Config tunes the suggestion cache and history scan.
type Config struct {
	CacheSize   int
	CacheTTL    time.Duration
	HistoryScan int
}

// Service suggests related queries. It never fails: an unusable provider falls back to
// history, and unusable history yields no suggestions.
type Service struct {
	provider Provider
	history  History
	cfg      Config
	logger   *zap.Logger
	cache    *expirable.LRU[string, []string]
}

// New creates a suggestion service. Zero config values take defaults.
func New(provider Provider, history History, cfg Config, logger *zap.Logger) *Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.HistoryScan <= 0 {
		cfg.HistoryScan = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider, history: history, cfg: cfg, logger: logger,
		cache: expirable.NewLRU[string, []string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Suggest returns at most limit suggestions for q.
func (s *Service) Suggest(ctx context.Context, q string, limit int) []string {
	q = strings.TrimSpace(q)
	if q == "" || limit <= 0 {
		return []string{}
	}

	key := strings.ToLower(q) + "\x00" + strconv.Itoa(limit)
	if got, ok := s.cache.Get(key); ok {
		metrics.SuggestionRequestsTotal.WithLabelValues("cache").Inc()
		return slices.Clone(got)
	}

	got, ok := s.fromProvider(ctx, q, limit)
	if ok {
		metrics.SuggestionRequestsTotal.WithLabelValues("provider").Inc()
	} else {
		got, ok = s.fromHistory(ctx, q, limit)
		if !ok {
			return []string{}
		}
		metrics.SuggestionRequestsTotal.WithLabelValues("history").Inc()
	}

	s.cache.Add(key, slices.Clone(got))
	return slices.Clone(got)
}

func (s *Service) fromProvider(ctx context.Context, q string, limit int) ([]string, bool) {
	if s.provider == nil || !s.provider.Available() {
		return nil, false
	}
	got, err := s.provider.Suggest(ctx, q, limit)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Suggestion provider failed, using history", zap.Error(err))
		return nil, false
	}
	if got == nil {
		got = []string{}
	}
	if len(got) > limit {
		got = got[:limit]
	}
	return got, true
}

// fromHistory returns distinct prior queries containing q, excluding q itself, newest first.
func (s *Service) fromHistory(ctx context.Context, q string, limit int) ([]string, bool) {
	if s.history == nil {
		return []string{}, true
	}
	records, err := s.history.Recent(ctx, s.cfg.HistoryScan)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Suggestion history unavailable", zap.Error(err))
		return nil, false
	}

	needle := strings.ToLower(q)
	seen := map[string]struct{}{needle: {}}
	out := make([]string, 0, limit)
	for i := range records {
		text := strings.TrimSpace(records[i].Text())
		lower := strings.ToLower(text)
		if !strings.Contains(lower, needle) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, text)
		if len(out) == limit {
			break
		}
	}
	return out, true
}
