package chi

import (
	"context"

	domanalytics "github.com/kailas-cloud/omnisearch/internal/domain/analytics"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/omnisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/omnisearch/internal/usecase/search"
)

// Searcher executes search requests.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Response, error)
}

// Suggester completes partial queries.
type Suggester interface {
	Suggest(ctx context.Context, q string, limit int) []string
}

// AnalyticsReader summarizes search usage.
type AnalyticsReader interface {
	GetAnalytics(ctx context.Context, days int) (domanalytics.Summary, error)
}

// Indexer runs indexing jobs and document maintenance.
type Indexer interface {
	IndexAll(ctx context.Context) indexing.Report
	IndexByType(ctx context.Context, ct domdoc.ContentType) (indexing.TypeReport, error)
	ReindexEmbeddings(ctx context.Context) (int, error)
	Stats(ctx context.Context) (indexing.Stats, error)
	Remove(ctx context.Context, id string) error
	ProviderAvailable() bool
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
