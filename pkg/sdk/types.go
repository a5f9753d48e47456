package omnisearch

import "time"

// SearchType selects the search strategy.
type SearchType string

// Search strategies.
const (
	SearchSemantic SearchType = "semantic"
	SearchKeyword  SearchType = "keyword"
	SearchHybrid   SearchType = "hybrid"
)

// Content types accepted by IndexType and search filters.
const (
	ContentUser    = "user"
	ContentFile    = "file"
	ContentStream  = "stream"
	ContentPost    = "post"
	ContentComment = "comment"
)

// DateRange bounds document creation time. Nil ends are open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Filters narrow a search. Zero-valued fields are not applied.
type Filters struct {
	ContentType []string          `json:"contentType,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	DateRange   *DateRange        `json:"dateRange,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SearchRequest is the body of POST /api/v1/search.
// Zero Limit and Offset leave the server defaults in place.
type SearchRequest struct {
	Query   string     `json:"query"`
	Type    SearchType `json:"type,omitempty"`
	Filters *Filters   `json:"filters,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
	UserID  string     `json:"userId,omitempty"`
}

// SearchResult is a single ranked document.
type SearchResult struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	ContentType string            `json:"contentType"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Score       float64           `json:"score"`
	MatchType   string            `json:"matchType"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SearchResponse is one page of results.
// SearchType reports the strategy actually used, which is keyword when the
// server degraded a semantic or hybrid request.
type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	Total          int            `json:"total"`
	Query          string         `json:"query"`
	SearchType     SearchType     `json:"searchType"`
	ResponseTimeMs int64          `json:"responseTimeMs"`
	Suggestions    []string       `json:"suggestions"`
}

// TopQuery is a frequently issued query.
type TopQuery struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// Analytics summarizes search traffic over PeriodDays.
type Analytics struct {
	TotalQueries      int        `json:"totalQueries"`
	UniqueUsers       int        `json:"uniqueUsers"`
	AvgResponseTimeMs float64    `json:"avgResponseTimeMs"`
	TopQueries        []TopQuery `json:"topQueries"`
	PeriodDays        int        `json:"periodDays"`
}

// Stats describes the document store.
type Stats struct {
	TotalDocuments          int            `json:"totalDocuments"`
	DocumentsWithEmbeddings int            `json:"documentsWithEmbeddings"`
	CountsByContentType     map[string]int `json:"countsByContentType"`
	RecentlyIndexedCount    int            `json:"recentlyIndexedCount"`
}

// IndexStatus is returned by GET /api/v1/admin/index.
type IndexStatus struct {
	Stats             Stats `json:"stats"`
	ProviderAvailable bool  `json:"providerAvailable"`
}

// IndexReport is the outcome of a full indexing run.
// Errors are keyed by content type; a run with errors still indexes the rest.
type IndexReport struct {
	Counts map[string]int
	Total  int
	Errors map[string][]string
}

// TypeReport is the outcome of indexing one content type.
type TypeReport struct {
	ContentType string
	Indexed     int
	Embedded    int
	Errors      []string
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"/"disabled"
}

type indexActionRequest struct {
	Action string `json:"action"`
}

type indexActionResponse struct {
	Action   string              `json:"action"`
	Success  bool                `json:"success"`
	Count    *int                `json:"count,omitempty"`
	Embedded *int                `json:"embedded,omitempty"`
	Counts   map[string]int      `json:"counts,omitempty"`
	Total    *int                `json:"total,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Stats    *Stats              `json:"stats,omitempty"`
}

type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
