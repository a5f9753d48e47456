package config

import (
	"errors"
	"fmt"
	"time"
)

// Vector index algorithms accepted in index.algorithm.
const (
	AlgorithmHNSW = "hnsw"
	AlgorithmFlat = "flat"
)

var defaultFusion = FusionConfig{Semantic: 0.7, Keyword: 0.3, SemanticLimit: 0.7, KeywordLimit: 0.5}

// orDefault sets *v to def when *v is the zero value.
func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// ApplyDefaults fills unset fields. Negative numbers are left for Validate to reject.
func (c *Config) ApplyDefaults() {
	orDefault(&c.HTTP.ReadTimeoutSec, 10)
	orDefault(&c.HTTP.WriteTimeoutSec, 30)
	orDefault(&c.HTTP.ShutdownSec, 10)
	orDefault(&c.Database.ReadinessTimeout, 10)

	orDefault(&c.Embedding.Provider, "openai")
	orDefault(&c.Embedding.Model, "text-embedding-3-small")
	orDefault(&c.Embedding.Dimensions, 1536)
	orDefault(&c.Embedding.TimeoutSec, 10)

	orDefault(&c.Index.Algorithm, AlgorithmHNSW)
	orDefault(&c.Index.HNSWM, 16)
	orDefault(&c.Index.HNSWEFConstruct, 200)
	orDefault(&c.Index.FallbackScan, 1000)

	orDefault(&c.Search.BranchTimeoutMs, 3000)
	orDefault(&c.Search.SuggestionLimit, 5)
	orDefault(&c.Search.Fusion, defaultFusion)

	orDefault(&c.Indexing.Workers, 4)

	orDefault(&c.Suggest.CacheSize, 1000)
	orDefault(&c.Suggest.CacheTTLSec, 300)
	orDefault(&c.Suggest.HistoryScan, 500)

	orDefault(&c.Analytics.QueueSize, 1024)
	orDefault(&c.Analytics.WriteTimeoutMs, 2000)
	orDefault(&c.Analytics.TrimIntervalMin, 60)

	orDefault(&c.Storage.KeyPrefix, "omnisearch:")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.HTTP.Port > 0 && c.HTTP.Port <= 65535, "http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	check(len(c.Database.Addrs) > 0, "database.addrs is required")
	check(c.Index.Algorithm == AlgorithmHNSW || c.Index.Algorithm == AlgorithmFlat,
		"index.algorithm must be %q or %q, got %q", AlgorithmHNSW, AlgorithmFlat, c.Index.Algorithm)
	check(c.Embedding.Dimensions > 0, "embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	check(c.Indexing.Workers > 0, "indexing.workers must be positive, got %d", c.Indexing.Workers)

	f := c.Search.Fusion
	check(f.Semantic >= 0 && f.Semantic <= 1, "search.fusion.semantic must be between 0 and 1, got %v", f.Semantic)
	check(f.Keyword >= 0 && f.Keyword <= 1, "search.fusion.keyword must be between 0 and 1, got %v", f.Keyword)
	check(f.SemanticLimit > 0, "search.fusion.semantic_limit must be positive, got %v", f.SemanticLimit)
	check(f.KeywordLimit > 0, "search.fusion.keyword_limit must be positive, got %v", f.KeywordLimit)

	check(c.Analytics.RetentionDays >= 0,
		"analytics.retention_days must not be negative, got %d", c.Analytics.RetentionDays)
	check(c.Embedding.CacheTTLSec >= 0,
		"embedding.cache_ttl_sec must not be negative, got %d", c.Embedding.CacheTTLSec)

	return errors.Join(errs...)
}

// BranchTimeout returns the per-branch search timeout.
func (c *Config) BranchTimeout() time.Duration {
	return time.Duration(c.Search.BranchTimeoutMs) * time.Millisecond
}

// Retention returns the query log retention; zero keeps records forever.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Analytics.RetentionDays) * 24 * time.Hour
}
