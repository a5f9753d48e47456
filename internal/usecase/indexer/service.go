package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	domsrc "github.com/kailas-cloud/omnisearch/internal/domain/source"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
)

// recentWindow is the period counted as recently indexed in Stats.
const recentWindow = 24 * time.Hour

// SourceTypes are the content types read from the primary database, in job order.
var SourceTypes = []domdoc.ContentType{domdoc.TypeUser, domdoc.TypeFile, domdoc.TypeStream, domdoc.TypePost}

// Config tunes indexing throughput.
type Config struct {
	// Workers bounds concurrent unit pipelines, and with them provider calls.
	Workers int
	// ReembedBatch caps documents handled by one ReindexEmbeddings run; 0 means all.
	ReembedBatch int
}

// Service turns source content units into searchable documents.
type Service struct {
	source SourceReader
	docs   DocumentStore
	embed  Embedder
	pool   *ants.Pool
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an indexer. The worker pool is shared by every job; call Close to release it.
func New(src SourceReader, docs DocumentStore, embed Embedder, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		source: src, docs: docs, embed: embed, pool: pool,
		cfg: cfg, logger: logger, now: time.Now,
	}, nil
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// ProviderAvailable reports whether documents get embeddings at index time.
func (s *Service) ProviderAvailable() bool {
	return s.embed != nil && s.embed.Available()
}

// IndexContent transforms, embeds and upserts one unit. Only a failed unit returns an error;
// a failed embedding leaves the document indexed without a vector.
func (s *Service) IndexContent(ctx context.Context, unit domsrc.Unit) (indexing.State, error) {
	doc, err := unit.ToDocument()
	if err != nil {
		return indexing.StateFailed, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	now := s.now()
	createdAt := now

	existing, err := s.docs.Get(ctx, doc.ID())
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
	case err != nil:
		return indexing.StateFailed, fmt.Errorf("get %s: %w", doc.ID(), err)
	default:
		createdAt = existing.CreatedAt()
		if existing.HasEmbedding() && existing.ContentHash() == doc.ContentHash() {
			return indexing.StateEmbedded, nil
		}
	}

	state := indexing.StateIndexed
	if s.ProviderAvailable() {
		state = indexing.StateEmbeddingPending
		emb, err := s.embed.Embed(ctx, doc.EmbeddingText())
		if err != nil {
			s.logger.Warn("Indexing without embedding",
				zap.String("id", doc.ID()),
				zap.Error(err),
			)
			state = indexing.StateIndexed
		} else {
			doc = doc.WithEmbedding(emb.Embedding)
			state = indexing.StateEmbedded
		}
	}

	doc = doc.WithTimestamps(createdAt, now)
	if err := s.docs.Upsert(ctx, doc); err != nil {
		return indexing.StateFailed, fmt.Errorf("upsert %s: %w", doc.ID(), err)
	}
	return state, nil
}

// IndexByType indexes every current source row of one content type. Item failures are
// collected in the report; the error is reserved for an unreadable source.
func (s *Service) IndexByType(ctx context.Context, ct domdoc.ContentType) (indexing.TypeReport, error) {
	start := time.Now()
	defer func() {
		metrics.IndexJobDuration.WithLabelValues(string(ct)).Observe(time.Since(start).Seconds())
	}()

	report := indexing.TypeReport{ContentType: ct}

	units, err := s.load(ctx, ct)
	if err != nil {
		return report, fmt.Errorf("load %s: %w", ct, err)
	}

	for _, res := range s.indexUnits(ctx, units) {
		metrics.IndexedDocumentsTotal.WithLabelValues(string(ct), string(res.State())).Inc()
		if res.Err() != nil {
			report.Errors = append(report.Errors, domain.NewItemError(res.ID(), string(ct), res.Err()))
			continue
		}
		report.Indexed++
		if res.State() == indexing.StateEmbedded {
			report.Embedded++
		}
	}

	s.logger.Info("Indexed content type",
		zap.String("content_type", string(ct)),
		zap.Int("units", len(units)),
		zap.Int("indexed", report.Indexed),
		zap.Int("embedded", report.Embedded),
		zap.Int("failed", len(report.Errors)),
	)
	return report, nil
}

// IndexAll runs one job per content type concurrently. A failing or panicking job is
// recorded in the report and never stops its siblings.
func (s *Service) IndexAll(ctx context.Context) indexing.Report {
	start := time.Now()
	types := SourceTypes
	reports := make([]indexing.TypeReport, len(types))
	jobErrs := make([]error, len(types))

	var g errgroup.Group
	for i, ct := range types {
		reports[i] = indexing.TypeReport{ContentType: ct}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					reports[i] = indexing.TypeReport{ContentType: ct}
					jobErrs[i] = fmt.Errorf("index %s: panic: %v", ct, r)
				}
			}()
			reports[i], jobErrs[i] = s.IndexByType(ctx, ct)
			return nil
		})
	}
	_ = g.Wait()

	report := indexing.NewReport(types...)
	for i := range types {
		if jobErrs[i] != nil {
			s.logger.Error("Indexing job failed",
				zap.String("content_type", string(types[i])),
				zap.Error(jobErrs[i]),
			)
		}
		report.Add(reports[i], jobErrs[i])
	}

	metrics.IndexJobDuration.WithLabelValues("all").Observe(time.Since(start).Seconds())
	return report
}

// ReindexEmbeddings embeds documents stored without a vector. It fails fast only when the
// provider is unavailable; per-document failures are logged and skipped.
func (s *Service) ReindexEmbeddings(ctx context.Context) (int, error) {
	if !s.ProviderAvailable() {
		return 0, domain.ErrProviderUnavailable
	}

	start := time.Now()
	defer func() {
		metrics.IndexJobDuration.WithLabelValues("reembed").Observe(time.Since(start).Seconds())
	}()

	ids, err := s.docs.ListWithoutEmbedding(ctx, s.cfg.ReembedBatch)
	if err != nil {
		return 0, fmt.Errorf("list documents without embedding: %w", err)
	}

	var updated atomic.Int64
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.reembed(ctx, id); err != nil {
				s.logger.Warn("Re-embedding failed", zap.String("id", id), zap.Error(err))
				return
			}
			updated.Add(1)
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("Re-embedding not scheduled", zap.String("id", id), zap.Error(err))
		}
	}
	wg.Wait()

	s.logger.Info("Re-embedding finished",
		zap.Int("candidates", len(ids)),
		zap.Int64("updated", updated.Load()),
	)
	return int(updated.Load()), nil
}

func (s *Service) reembed(ctx context.Context, id string) error {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if doc.HasEmbedding() {
		return nil
	}
	emb, err := s.embed.Embed(ctx, doc.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	doc = doc.WithEmbedding(emb.Embedding)
	doc = doc.WithTimestamps(doc.CreatedAt(), s.now())
	if err := s.docs.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Stats summarizes the store, counting documents created in the last 24h as recent.
func (s *Service) Stats(ctx context.Context) (indexing.Stats, error) {
	st, err := s.docs.Stats(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return indexing.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Remove deletes the document of a deleted source unit.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// indexUnits runs every unit through the shared pool and returns results in input order.
func (s *Service) indexUnits(ctx context.Context, units []domsrc.Unit) []indexing.ItemResult {
	results := make([]indexing.ItemResult, len(units))
	var wg sync.WaitGroup

	for i, unit := range units {
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = indexing.NewFailed(unit.ID, fmt.Errorf("panic: %v", r))
				}
			}()
			state, err := s.IndexContent(ctx, unit)
			if err != nil {
				results[i] = indexing.NewFailed(unit.ID, err)
				return
			}
			results[i] = indexing.NewResult(unit.ID, state)
		})
		if err != nil {
			wg.Done()
			results[i] = indexing.NewFailed(unit.ID, fmt.Errorf("schedule: %w", err))
		}
	}
	wg.Wait()
	return results
}

// load reads and transforms the source rows of one type. Missing stream and post
// tables are replaced by the built-in samples.
func (s *Service) load(ctx context.Context, ct domdoc.ContentType) ([]domsrc.Unit, error) {
	switch ct {
	case domdoc.TypeUser:
		rows, err := s.source.Users(ctx)
		if err != nil {
			return nil, err
		}
		return transform(rows, domsrc.FromUser), nil
	case domdoc.TypeFile:
		rows, err := s.source.Files(ctx)
		if err != nil {
			return nil, err
		}
		return transform(rows, domsrc.FromFile), nil
	case domdoc.TypeStream:
		rows, err := s.source.Streams(ctx)
		if errors.Is(err, domain.ErrSourceMissing) {
			s.logger.Info("Streams table missing, indexing samples")
			return domsrc.SampleStreams(), nil
		}
		if err != nil {
			return nil, err
		}
		return transform(rows, domsrc.FromStream), nil
	case domdoc.TypePost:
		rows, err := s.source.Posts(ctx)
		if errors.Is(err, domain.ErrSourceMissing) {
			s.logger.Info("Posts table missing, indexing samples")
			return domsrc.SamplePosts(), nil
		}
		if err != nil {
			return nil, err
		}
		return transform(rows, domsrc.FromPost), nil
	default:
		return nil, fmt.Errorf("unknown content type %q: %w", ct, domain.ErrInvalidRequest)
	}
}

func transform[T any](rows []T, fn func(T) domsrc.Unit) []domsrc.Unit {
	units := make([]domsrc.Unit, len(rows))
	for i, row := range rows {
		units[i] = fn(row)
	}
	return units
}
