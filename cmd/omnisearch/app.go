package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/config"
	"github.com/kailas-cloud/omnisearch/internal/db"
	dbRedis "github.com/kailas-cloud/omnisearch/internal/db/redis"
	"github.com/kailas-cloud/omnisearch/internal/domain"
	logpkg "github.com/kailas-cloud/omnisearch/internal/logger"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
	documentrepo "github.com/kailas-cloud/omnisearch/internal/repository/document"
	"github.com/kailas-cloud/omnisearch/internal/repository/embcache"
	"github.com/kailas-cloud/omnisearch/internal/repository/querylog"
	sourcerepo "github.com/kailas-cloud/omnisearch/internal/repository/source"
	openaiTransport "github.com/kailas-cloud/omnisearch/internal/transport/openai"
	analyticsuc "github.com/kailas-cloud/omnisearch/internal/usecase/analytics"
	embeddinguc "github.com/kailas-cloud/omnisearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/omnisearch/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/omnisearch/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/omnisearch/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/omnisearch/internal/usecase/suggest"
	"github.com/kailas-cloud/omnisearch/internal/version"
)

// memorySource is used when no source database is configured: every table is
// missing, so streams and posts index their samples.
const memorySource = "file::memory:"

// embedder is what the usecases need from the decorator chain.
type embedder interface {
	domain.Embedder
	Available() bool
}

// app is the composition root shared by every command.
type app struct {
	cfg       config.Config
	env       string
	logger    *zap.Logger
	store     *dbRedis.Store
	source    *sourcerepo.Reader
	docs      *documentrepo.Repo
	provider  *openaiTransport.Embedder
	queryLog  *analyticsuc.AsyncLogger
	indexer   *indexeruc.Service
	search    *searchuc.Service
	suggest   *suggestuc.Service
	analytics *analyticsuc.Service
	health    *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting omnisearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	a := &app{cfg: cfg, env: env, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	logger := a.logger

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	a.store = store

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	dsn := cfg.Indexing.SourceDSN
	if dsn == "" {
		logger.Warn("No source database configured, indexing samples only")
		dsn = memorySource
	}
	source, err := sourcerepo.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	a.source = source

	// Build embedder chain: composition root
	a.provider = openaiTransport.NewEmbedder(a.providerConfig())
	docEmbedder := buildEmbedder(a.provider, cfg.Embedding, "", cfg.Storage.KeyPrefix, store, logger)
	queryEmbedder := buildEmbedder(
		a.provider, cfg.Embedding, cfg.Embedding.QueryInstruction, cfg.Storage.KeyPrefix, store, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("available", a.provider.Available()),
	)

	a.docs = documentrepo.New(store, documentrepo.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		VectorDim:       cfg.Embedding.Dimensions,
		VectorAlgorithm: vectorAlgorithm(cfg.Index.Algorithm),
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		FallbackScan:    cfg.Index.FallbackScan,
	})
	if err := a.docs.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure document index: %w", err)
	}

	queryLogRepo := querylog.New(store, cfg.Storage.KeyPrefix, logger)
	a.queryLog = analyticsuc.NewAsyncLogger(queryLogRepo, analyticsuc.LoggerConfig{
		QueueSize:    cfg.Analytics.QueueSize,
		WriteTimeout: time.Duration(cfg.Analytics.WriteTimeoutMs) * time.Millisecond,
		Retention:    cfg.Retention(),
		TrimInterval: time.Duration(cfg.Analytics.TrimIntervalMin) * time.Minute,
	}, logger)
	a.analytics = analyticsuc.NewService(queryLogRepo, cfg.Analytics.ScanBatch)

	a.indexer, err = indexeruc.New(a.source, a.docs, docEmbedder, indexeruc.Config{
		Workers:      cfg.Indexing.Workers,
		ReembedBatch: cfg.Indexing.ReembedBatch,
	}, logger)
	if err != nil {
		return fmt.Errorf("create indexer: %w", err)
	}

	a.suggest = suggestuc.New(
		openaiTransport.NewSuggester(a.providerConfig()),
		queryLogRepo,
		suggestuc.Config{
			CacheSize:   cfg.Suggest.CacheSize,
			CacheTTL:    time.Duration(cfg.Suggest.CacheTTLSec) * time.Second,
			HistoryScan: cfg.Suggest.HistoryScan,
		},
		logger,
	)

	fusion := cfg.Search.Fusion
	a.search = searchuc.New(a.docs, queryEmbedder, a.queryLog, a.suggest, searchuc.Config{
		Weights: searchuc.Weights{
			Semantic:      fusion.Semantic,
			Keyword:       fusion.Keyword,
			SemanticLimit: fusion.SemanticLimit,
			KeywordLimit:  fusion.KeywordLimit,
		},
		BranchTimeout:   cfg.BranchTimeout(),
		SuggestionLimit: cfg.Search.SuggestionLimit,
	}, logger)

	a.health = healthuc.New(store, a.provider, logger)
	return nil
}

func (a *app) providerConfig() *openaiTransport.Config {
	e := a.cfg.Embedding
	return &openaiTransport.Config{
		APIKey:     e.APIKey,
		BaseURL:    e.BaseURL,
		Model:      e.Model,
		Dimensions: e.Dimensions,
		ChatModel:  e.ChatModel,
		Timeout:    time.Duration(e.TimeoutSec) * time.Second,
		Provider:   e.Provider,
		Logger:     a.logger,
	}
}

// Close releases resources in reverse wiring order. Queued query records are
// flushed while ctx allows.
func (a *app) Close(ctx context.Context) {
	if a.queryLog != nil {
		if err := a.queryLog.Close(ctx); err != nil {
			a.logger.Warn("Query log not fully flushed", zap.Error(err))
		}
	}
	if a.indexer != nil {
		a.indexer.Close()
	}
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("Close source database", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base *openaiTransport.Embedder,
	cfg config.EmbeddingConfig,
	instruction string,
	keyPrefix string,
	store db.KVStore,
	logger *zap.Logger,
) embedder {
	var e embedder = embcache.New(base, store, embcache.Config{
		KeyPrefix:  keyPrefix,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		TTL:        time.Duration(cfg.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logger)

	e = embeddinguc.NewInstrumentedEmbedder(e, cfg.Provider, cfg.Model, cfg.Dimensions, logger)

	// Instruction prefix (outermost, cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(e, instruction)
	}
	return e
}

func vectorAlgorithm(name string) db.VectorAlgorithm {
	if name == config.AlgorithmFlat {
		return db.VectorFlat
	}
	return db.VectorHNSW
}
