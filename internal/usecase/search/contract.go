package search

import (
	"context"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
)

// DocumentStore defines the retrieval contract for search operations.
// Implementations must return once ctx is done; branch timeouts rely on it.
type DocumentStore interface {
	QueryBySimilarity(ctx context.Context, vector []float32, filters filter.Filters, limit int) ([]result.Result, error)
	QueryByText(ctx context.Context, text string, filters filter.Filters, limit int) ([]result.Result, error)
	QueryByTitle(ctx context.Context, substring string, filters filter.Filters, limit int) ([]result.Result, error)
}

// Embedder vectorizes query text. Available false means semantic retrieval degrades to keyword.
// Embed must return once ctx is done.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	Available() bool
}

// QueryLogger records executed searches without blocking the caller.
type QueryLogger interface {
	Log(rec query.Record)
}

// Suggester produces query suggestions. It never fails.
type Suggester interface {
	Suggest(ctx context.Context, query string, limit int) []string
}
