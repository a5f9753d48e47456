package document

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/db"
	"github.com/kailas-cloud/omnisearch/internal/domain"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
)

// Lexical ranks assigned to keyword hits by where the query occurs.
const (
	rankTitle   = 1.0
	rankContent = 0.8
	rankOther   = 0.6
)

// FallbackScore is the fixed score of title-substring fallback hits.
const FallbackScore = 0.5

const (
	listPageSize = 100
	// metadata filters are applied after retrieval, so fetch extra candidates
	metadataOverfetch = 4
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config describes the document index layout.
type Config struct {
	KeyPrefix       string
	VectorDim       int
	VectorAlgorithm db.VectorAlgorithm
	HNSWM           int
	HNSWEFConstruct int
	// FallbackScan bounds how many recent documents the title fallback inspects.
	FallbackScan int
}

// Repo implements the document store contracts of the search and indexer usecases.
type Repo struct {
	store store
	cfg   Config
}

// New creates a document repository.
func New(s store, cfg Config) *Repo {
	if cfg.FallbackScan <= 0 {
		cfg.FallbackScan = 1000
	}
	if cfg.VectorAlgorithm == "" {
		cfg.VectorAlgorithm = db.VectorHNSW
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the document FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w: %w", r.indexName(), domain.ErrStore, err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w: %w", def.Name, domain.ErrStore, err)
	}
	return nil
}

// RecreateIndex drops and rebuilds the FT index. Stored documents are kept and
// re-indexed by the server under the current schema.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w: %w", r.indexName(), domain.ErrStore, err)
	}
	return r.EnsureIndex(ctx)
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	return db.NewIndex(r.indexName()).
		Prefix(r.docPrefix()).
		TextWeighted(fieldTitle, titleWeight).
		Text(fieldContent).
		Tag(fieldContentType).
		TagWithOpts(fieldTags, tagSeparator, false).
		Tag(fieldHasEmbedding).
		Numeric(fieldCreatedAt).Sortable().
		Numeric(fieldUpdatedAt).
		Vector(fieldEmbedding, db.VectorOptions{
			Algorithm:   r.cfg.VectorAlgorithm,
			Dim:         r.cfg.VectorDim,
			Distance:    db.DistanceCosine,
			M:           r.cfg.HNSWM,
			EFConstruct: r.cfg.HNSWEFConstruct,
		}).
		Build()
}

// Upsert stores the document under its id. A document without embedding loses any stored vector.
func (r *Repo) Upsert(ctx context.Context, doc domdoc.Document) error {
	key := r.docKey(doc.ID())
	if err := r.store.HSet(ctx, key, buildHashFields(&doc)); err != nil {
		return fmt.Errorf("hset %s: %w: %w", key, domain.ErrStore, err)
	}
	if !doc.HasEmbedding() {
		if err := r.store.HDel(ctx, key, fieldEmbedding); err != nil {
			return fmt.Errorf("hdel %s: %w: %w", key, domain.ErrStore, err)
		}
	}
	return nil
}

// Get returns a document by ID, embedding included.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := r.docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrStore, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m), nil
}

// Delete removes a document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w: %w", key, domain.ErrStore, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w: %w", key, domain.ErrStore, err)
	}
	return nil
}

// QueryBySimilarity runs a KNN query. Scores are cosine similarity in [0, 1].
func (r *Repo) QueryBySimilarity(
	ctx context.Context, vector []float32, filters filter.Filters, limit int,
) ([]result.Result, error) {
	if limit <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldEmbedding,
		Filters:      filters.Expression(),
		Vector:       vector,
		K:            r.fetchLimit(filters, limit),
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w: %w", domain.ErrStore, err)
	}

	results := make([]result.Result, 0, min(limit, len(sr.Entries)))
	for _, entry := range sr.Entries {
		doc := parseHashFields(r.docID(entry.Key), entry.Fields)
		if !filters.MatchesMetadata(doc.Metadata()) {
			continue
		}
		results = append(results, result.New(doc, entry.Score, mode.Semantic))
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// QueryByText runs a full-text query over title, content and tags.
// Hits are ranked 1.0 when the title contains the query, 0.8 when the content
// does, 0.6 otherwise; BM25 order is kept within a rank.
func (r *Repo) QueryByText(
	ctx context.Context, text string, filters filter.Filters, limit int,
) ([]result.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" || limit <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.indexName(),
		Query:        text,
		TextFields:   []string{fieldTitle, fieldContent},
		TagFields:    []string{fieldTags},
		Filters:      filters.Expression(),
		TopK:         r.fetchLimit(filters, limit),
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search text: %w: %w", domain.ErrStore, err)
	}

	needle := strings.ToLower(text)
	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		doc := parseHashFields(r.docID(entry.Key), entry.Fields)
		if !filters.MatchesMetadata(doc.Metadata()) {
			continue
		}
		results = append(results, result.New(doc, lexicalRank(&doc, needle), mode.Keyword))
	}

	slices.SortStableFunc(results, func(a, b result.Result) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func lexicalRank(doc *domdoc.Document, needle string) float64 {
	switch {
	case strings.Contains(strings.ToLower(doc.Title()), needle):
		return rankTitle
	case strings.Contains(strings.ToLower(doc.Content()), needle):
		return rankContent
	default:
		return rankOther
	}
}

// QueryByTitle returns the most recent documents whose title contains substring
// (case-insensitive), each scored FallbackScore.
func (r *Repo) QueryByTitle(
	ctx context.Context, substring string, filters filter.Filters, limit int,
) ([]result.Result, error) {
	needle := strings.ToLower(strings.TrimSpace(substring))
	if needle == "" || limit <= 0 {
		return nil, nil
	}

	var results []result.Result
	for offset := 0; offset < r.cfg.FallbackScan && len(results) < limit; offset += listPageSize {
		sr, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.indexName(),
			Filters:      filters.Expression(),
			SortBy:       fieldCreatedAt,
			Descending:   true,
			Offset:       offset,
			Limit:        listPageSize,
			ReturnFields: returnFields,
		})
		if err != nil {
			return nil, fmt.Errorf("search title: %w: %w", domain.ErrStore, err)
		}

		for _, entry := range sr.Entries {
			doc := parseHashFields(r.docID(entry.Key), entry.Fields)
			if !strings.Contains(strings.ToLower(doc.Title()), needle) || !filters.MatchesMetadata(doc.Metadata()) {
				continue
			}
			results = append(results, result.New(doc, FallbackScore, mode.Fallback))
			if len(results) == limit {
				break
			}
		}

		if len(sr.Entries) < listPageSize {
			break
		}
	}
	return results, nil
}

// Stats counts documents in total, with embeddings, per content type and created since the given time.
func (r *Repo) Stats(ctx context.Context, since time.Time) (indexing.Stats, error) {
	total, err := r.count(ctx, "*")
	if err != nil {
		return indexing.Stats{}, err
	}
	withEmb, err := r.count(ctx, fmt.Sprintf("@%s:{1}", fieldHasEmbedding))
	if err != nil {
		return indexing.Stats{}, err
	}
	recent, err := r.count(ctx, fmt.Sprintf("@%s:[%d +inf]", fieldCreatedAt, since.UnixMilli()))
	if err != nil {
		return indexing.Stats{}, err
	}

	byType := make(map[domdoc.ContentType]int, len(domdoc.ContentTypes()))
	for _, ct := range domdoc.ContentTypes() {
		n, err := r.count(ctx, fmt.Sprintf("@%s:{%s}", fieldContentType, ct))
		if err != nil {
			return indexing.Stats{}, err
		}
		byType[ct] = n
	}

	return indexing.Stats{
		TotalDocuments:          total,
		DocumentsWithEmbeddings: withEmb,
		CountsByContentType:     byType,
		RecentlyIndexedCount:    recent,
	}, nil
}

func (r *Repo) count(ctx context.Context, query string) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), query)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w: %w", query, domain.ErrStore, err)
	}
	return n, nil
}

// ListWithoutEmbedding returns ids of documents lacking an embedding, newest first.
// All ids are collected before returning so callers may rewrite documents safely.
// limit <= 0 returns every such document.
func (r *Repo) ListWithoutEmbedding(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += listPageSize {
		sr, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    r.indexName(),
			Query:        fmt.Sprintf("@%s:{0}", fieldHasEmbedding),
			SortBy:       fieldCreatedAt,
			Descending:   true,
			Offset:       offset,
			Limit:        listPageSize,
			ReturnFields: []string{fieldID},
		})
		if err != nil {
			return nil, fmt.Errorf("list without embedding: %w: %w", domain.ErrStore, err)
		}

		for _, entry := range sr.Entries {
			id := entry.Fields[fieldID]
			if id == "" {
				id = r.docID(entry.Key)
			}
			ids = append(ids, id)
			if limit > 0 && len(ids) == limit {
				return ids, nil
			}
		}

		if len(sr.Entries) < listPageSize || offset+listPageSize >= sr.Total {
			return ids, nil
		}
	}
}

func (r *Repo) fetchLimit(filters filter.Filters, limit int) int {
	if len(filters.Metadata()) > 0 {
		return limit * metadataOverfetch
	}
	return limit
}

func (r *Repo) docPrefix() string { return r.cfg.KeyPrefix + "doc:" }

func (r *Repo) docKey(id string) string { return r.docPrefix() + id }

func (r *Repo) docID(key string) string { return strings.TrimPrefix(key, r.docPrefix()) }

func (r *Repo) indexName() string { return r.cfg.KeyPrefix + "documents" }
