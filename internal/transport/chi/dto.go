package chi

import (
	"time"

	domanalytics "github.com/kailas-cloud/omnisearch/internal/domain/analytics"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
)

type errorCode string

// Error codes carried in error responses.
const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeUnauthorized        errorCode = "unauthorized"
	codeDocumentNotFound    errorCode = "document_not_found"
	codeSourceMissing       errorCode = "source_missing"
	codeUnknownAction       errorCode = "unknown_action"
	codeProviderUnavailable errorCode = "provider_unavailable"
	codeProviderError       errorCode = "embedding_provider_error"
	codeSearchUnavailable   errorCode = "search_unavailable"
	codeStoreUnavailable    errorCode = "store_unavailable"
	codeTimeout             errorCode = "timeout"
	codeInternalError       errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Admin index actions.
const (
	actionIndexAll          = "index-all"
	actionIndexUsers        = "index-users"
	actionIndexFiles        = "index-files"
	actionIndexStreams      = "index-streams"
	actionIndexPosts        = "index-posts"
	actionReindexEmbeddings = "reindex-embeddings"
	actionGetStats          = "get-stats"
)

// typedActions maps per-type index actions onto content types.
var typedActions = map[string]domdoc.ContentType{
	actionIndexUsers:   domdoc.TypeUser,
	actionIndexFiles:   domdoc.TypeFile,
	actionIndexStreams: domdoc.TypeStream,
	actionIndexPosts:   domdoc.TypePost,
}

type dateRangeBody struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type filtersBody struct {
	ContentType []string          `json:"contentType,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	DateRange   *dateRangeBody    `json:"dateRange,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type searchRequestBody struct {
	Query   string       `json:"query"`
	Type    string       `json:"type,omitempty"`
	Filters *filtersBody `json:"filters,omitempty"`
	Limit   *int         `json:"limit,omitempty"`
	Offset  *int         `json:"offset,omitempty"`
	UserID  string       `json:"userId,omitempty"`
}

// searchParams are the query parameters of GET /search.
type searchParams struct {
	Q           *string
	Type        *string
	Limit       *int
	Offset      *int
	ContentType *[]string
	Tags        *[]string
	UserID      *string
}

type searchResultItem struct {
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

type searchResponse struct {
	Results        []searchResultItem `json:"results"`
	Total          int                `json:"total"`
	Query          string             `json:"query"`
	SearchType     string             `json:"searchType"`
	ResponseTimeMs int64              `json:"responseTimeMs"`
	Suggestions    []string           `json:"suggestions"`
}

type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type topQueryItem struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

type analyticsResponse struct {
	TotalQueries      int            `json:"totalQueries"`
	UniqueUsers       int            `json:"uniqueUsers"`
	AvgResponseTimeMs float64        `json:"avgResponseTimeMs"`
	TopQueries        []topQueryItem `json:"topQueries"`
	PeriodDays        int            `json:"periodDays"`
}

type indexActionRequest struct {
	Action string `json:"action"`
}

type statsBody struct {
	TotalDocuments          int            `json:"totalDocuments"`
	DocumentsWithEmbeddings int            `json:"documentsWithEmbeddings"`
	CountsByContentType     map[string]int `json:"countsByContentType"`
	RecentlyIndexedCount    int            `json:"recentlyIndexedCount"`
}

type indexActionResponse struct {
	Action   string              `json:"action"`
	Success  bool                `json:"success"`
	Count    *int                `json:"count,omitempty"`
	Embedded *int                `json:"embedded,omitempty"`
	Counts   map[string]int      `json:"counts,omitempty"`
	Total    *int                `json:"total,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Stats    *statsBody          `json:"stats,omitempty"`
}

type indexStatusResponse struct {
	Stats             statsBody `json:"stats"`
	ProviderAvailable bool      `json:"providerAvailable"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func searchResultToBody(r *result.Result) searchResultItem {
	doc := r.Document()
	tags := doc.Tags()
	if tags == nil {
		tags = []string{}
	}
	return searchResultItem{
		ID:          doc.ID(),
		Title:       doc.Title(),
		Content:     doc.Content(),
		ContentType: string(doc.ContentType()),
		Tags:        tags,
		Metadata:    doc.Metadata(),
		Score:       r.Score(),
		MatchType:   string(r.MatchType()),
		CreatedAt:   doc.CreatedAt().UTC(),
		UpdatedAt:   doc.UpdatedAt().UTC(),
	}
}

func summaryToBody(s domanalytics.Summary) analyticsResponse {
	top := make([]topQueryItem, len(s.TopQueries))
	for i, q := range s.TopQueries {
		top[i] = topQueryItem{Query: q.Query, Count: q.Count, LastSeen: q.LastSeen.UTC()}
	}
	return analyticsResponse{
		TotalQueries:      s.TotalQueries,
		UniqueUsers:       s.UniqueUsers,
		AvgResponseTimeMs: s.AvgResponseTimeMs,
		TopQueries:        top,
		PeriodDays:        s.PeriodDays,
	}
}

func statsToBody(st indexing.Stats) statsBody {
	counts := make(map[string]int, len(st.CountsByContentType))
	for ct, n := range st.CountsByContentType {
		counts[string(ct)] = n
	}
	return statsBody{
		TotalDocuments:          st.TotalDocuments,
		DocumentsWithEmbeddings: st.DocumentsWithEmbeddings,
		CountsByContentType:     counts,
		RecentlyIndexedCount:    st.RecentlyIndexedCount,
	}
}

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
