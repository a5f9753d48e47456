package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/request"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
	"github.com/kailas-cloud/omnisearch/internal/logger"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
)

// Stages reported when a failure is absorbed.
const (
	stageSemantic = "semantic"
	stageKeyword  = "keyword"
	stageFallback = "fallback"
)

// Config tunes the orchestrator.
type Config struct {
	Weights         Weights
	BranchTimeout   time.Duration
	SuggestionLimit int
}

// Response is the outcome of one search.
type Response struct {
	Results      []result.Result
	Total        int
	Query        string
	SearchType   mode.Mode
	ResponseTime time.Duration
	Suggestions  []string
}

// branch is the typed outcome of one retrieval strategy.
type branch struct {
	results []result.Result
	err     error
}

func (b branch) failed() bool { return b.err != nil }

// Service orchestrates semantic, keyword and hybrid retrieval with fallback.
type Service struct {
	store   DocumentStore
	embed   Embedder
	log     QueryLogger
	suggest Suggester
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a search service. Zero config values take defaults.
func New(
	store DocumentStore, embed Embedder, log QueryLogger, suggest Suggester,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = 3 * time.Second
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store: store, embed: embed, log: log, suggest: suggest,
		cfg: cfg, logger: logger, now: time.Now,
	}
}

// Search executes the requested strategy. The only error returned is
// domain.ErrSearchUnavailable, when every strategy including the title fallback failed;
// the response is still populated (empty, search type error).
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := s.now()

	if req.IsEmpty() {
		return Response{
			Results:     []result.Result{},
			Query:       req.Query(),
			SearchType:  req.Mode(),
			Suggestions: []string{},
		}, nil
	}

	ranked, executed := s.execute(ctx, req)

	var err error
	if executed == mode.Error {
		err = domain.ErrSearchUnavailable
	}

	results := page(ranked, req.Offset(), req.Limit())
	elapsed := s.now().Sub(start)

	if s.log != nil {
		s.log.Log(query.New(
			req.Query(), executed, req.Filters(), len(results), elapsed, req.UserID(), start,
		))
	}

	suggestions := []string{}
	if s.suggest != nil {
		if got := s.suggest.Suggest(ctx, req.Query(), s.cfg.SuggestionLimit); got != nil {
			suggestions = got
		}
	}

	metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), string(executed)).Inc()
	metrics.SearchDuration.WithLabelValues(string(executed)).Observe(elapsed.Seconds())

	return Response{
		Results:      results,
		Total:        len(results),
		Query:        req.Query(),
		SearchType:   executed,
		ResponseTime: elapsed,
		Suggestions:  suggestions,
	}, err
}

// execute returns results ranked over the request window and the strategy that produced them.
func (s *Service) execute(ctx context.Context, req *request.Request) ([]result.Result, mode.Mode) {
	window := req.Window()

	switch req.Mode() {
	case mode.Semantic:
		if !s.embed.Available() {
			return s.single(ctx, req, stageKeyword, mode.Keyword, s.keyword(req, window))
		}
		return s.single(ctx, req, stageSemantic, mode.Semantic, s.semantic(req, window))
	case mode.Keyword:
		return s.single(ctx, req, stageKeyword, mode.Keyword, s.keyword(req, window))
	default:
		return s.hybrid(ctx, req)
	}
}

type retrieval func(ctx context.Context) ([]result.Result, error)

// semantic embeds the query and ranks by similarity. Without a provider it
// retrieves by keyword instead, so a hybrid request still fuses two branches.
func (s *Service) semantic(req *request.Request, limit int) retrieval {
	return func(ctx context.Context) ([]result.Result, error) {
		if !s.embed.Available() {
			return s.keyword(req, limit)(ctx)
		}
		emb, err := s.embed.Embed(ctx, req.Query())
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		res, err := s.store.QueryBySimilarity(ctx, emb.Embedding, req.Filters(), limit)
		if err != nil {
			return nil, fmt.Errorf("query by similarity: %w", err)
		}
		return res, nil
	}
}

func (s *Service) keyword(req *request.Request, limit int) retrieval {
	return func(ctx context.Context) ([]result.Result, error) {
		res, err := s.store.QueryByText(ctx, req.Query(), req.Filters(), limit)
		if err != nil {
			return nil, fmt.Errorf("query by text: %w", err)
		}
		return res, nil
	}
}

// single runs one strategy under the branch timeout; failure falls back to titles.
func (s *Service) single(
	ctx context.Context, req *request.Request, stage string, m mode.Mode, fn retrieval,
) ([]result.Result, mode.Mode) {
	b := s.run(ctx, stage, fn)
	if b.failed() {
		return s.fallback(ctx, req)
	}
	return b.results, m
}

// hybrid runs both branches concurrently and joins them at one barrier. A failed
// branch contributes nothing; only when both fail does the title fallback run.
func (s *Service) hybrid(ctx context.Context, req *request.Request) ([]result.Result, mode.Mode) {
	window := req.Window()
	w := s.cfg.Weights

	var sem, kw branch
	var g errgroup.Group
	g.Go(func() error {
		sem = s.run(ctx, stageSemantic, s.semantic(req, subLimit(window, w.SemanticLimit)))
		return nil
	})
	g.Go(func() error {
		kw = s.run(ctx, stageKeyword, s.keyword(req, subLimit(window, w.KeywordLimit)))
		return nil
	})
	_ = g.Wait()

	if sem.failed() && kw.failed() {
		return s.fallback(ctx, req)
	}

	fused := fuse(sem.results, kw.results, w)
	rank(fused)
	if len(fused) > window {
		fused = fused[:window]
	}
	return fused, mode.Hybrid
}

// fallback matches titles by substring, most recent first.
func (s *Service) fallback(ctx context.Context, req *request.Request) ([]result.Result, mode.Mode) {
	res, err := s.store.QueryByTitle(ctx, req.Query(), req.Filters(), req.Window())
	if err != nil {
		s.absorb(ctx, stageFallback, fmt.Errorf("query by title: %w", err))
		return []result.Result{}, mode.Error
	}
	return res, mode.Fallback
}

// run executes fn under its own timeout. fn runs synchronously and must honour
// bctx for the timeout to take effect. Errors are absorbed as a failed branch.
func (s *Service) run(ctx context.Context, stage string, fn retrieval) branch {
	bctx, cancel := context.WithTimeout(ctx, s.cfg.BranchTimeout)
	defer cancel()

	res, err := fn(bctx)
	if err != nil {
		if errors.Is(bctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		s.absorb(ctx, stage, err)
		return branch{err: err}
	}
	return branch{results: res}
}

// absorb is the single call-site for failures the search path degrades around.
func (s *Service) absorb(ctx context.Context, stage string, err error) {
	reason := failureReason(err)
	metrics.SearchDegradedTotal.WithLabelValues(stage, reason).Inc()

	logger.FromContextOr(ctx, s.logger).Warn("Search degraded",
		zap.String("stage", stage),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "dimension"
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrEmbeddingProviderError):
		return "provider"
	case errors.Is(err, domain.ErrStore):
		return "store"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
