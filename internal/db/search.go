package db

import "github.com/kailas-cloud/omnisearch/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 text search. The query matches any of
// TextFields as free text, or any of TagFields as an exact tag.
type TextQuery struct {
	IndexName    string
	Query        string
	TextFields   []string
	TagFields    []string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for a filtered, sorted, paginated scan of an index.
// Query and Filters are intersected; both empty matches every document.
type ListQuery struct {
	IndexName    string
	Query        string
	Filters      filter.Expression
	SortBy       string
	Descending   bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
