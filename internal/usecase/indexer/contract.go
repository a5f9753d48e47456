package indexer

import (
	"context"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	domsrc "github.com/kailas-cloud/omnisearch/internal/domain/source"
)

// SourceReader reads raw content units from the primary database.
// A missing table is reported as domain.ErrSourceMissing.
type SourceReader interface {
	Users(ctx context.Context) ([]domsrc.User, error)
	Files(ctx context.Context) ([]domsrc.File, error)
	Streams(ctx context.Context) ([]domsrc.Stream, error)
	Posts(ctx context.Context) ([]domsrc.Post, error)
}

// DocumentStore persists searchable documents.
type DocumentStore interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Upsert(ctx context.Context, doc domdoc.Document) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, since time.Time) (indexing.Stats, error)
	ListWithoutEmbedding(ctx context.Context, limit int) ([]string, error)
}

// Embedder vectorizes document text. Unavailable providers are skipped, not called.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	Available() bool
}
