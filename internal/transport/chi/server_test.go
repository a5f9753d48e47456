package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	domanalytics "github.com/kailas-cloud/omnisearch/internal/domain/analytics"
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/indexing"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/request"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/omnisearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/omnisearch/internal/usecase/search"
)

var createdAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeSearcher struct {
	got   *request.Request
	resp  searchuc.Response
	err   error
	panic bool
}

func (f *fakeSearcher) Search(_ context.Context, req *request.Request) (searchuc.Response, error) {
	if f.panic {
		panic("boom")
	}
	f.got = req
	return f.resp, f.err
}

type fakeSuggester struct {
	q     string
	limit int
	out   []string
}

func (f *fakeSuggester) Suggest(_ context.Context, q string, limit int) []string {
	f.q, f.limit = q, limit
	return f.out
}

type fakeAnalytics struct {
	days    int
	summary domanalytics.Summary
	err     error
}

func (f *fakeAnalytics) GetAnalytics(_ context.Context, days int) (domanalytics.Summary, error) {
	f.days = days
	return f.summary, f.err
}

type fakeIndexer struct {
	report    indexing.Report
	typed     indexing.TypeReport
	typedErr  error
	typedGot  domdoc.ContentType
	reindexed int
	reembErr  error
	stats     indexing.Stats
	removeErr error
	removed   string
	available bool
}

func (f *fakeIndexer) IndexAll(context.Context) indexing.Report { return f.report }

func (f *fakeIndexer) IndexByType(_ context.Context, ct domdoc.ContentType) (indexing.TypeReport, error) {
	f.typedGot = ct
	return f.typed, f.typedErr
}

func (f *fakeIndexer) ReindexEmbeddings(context.Context) (int, error) { return f.reindexed, f.reembErr }

func (f *fakeIndexer) Stats(context.Context) (indexing.Stats, error) { return f.stats, nil }

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	f.removed = id
	return f.removeErr
}

func (f *fakeIndexer) ProviderAvailable() bool { return f.available }

type fakeHealth struct{ report healthuc.Report }

func (f *fakeHealth) Check(context.Context) healthuc.Report { return f.report }

type fixture struct {
	search    *fakeSearcher
	suggest   *fakeSuggester
	analytics *fakeAnalytics
	indexer   *fakeIndexer
	health    *fakeHealth
	handler   http.Handler
}

func newFixture(t *testing.T, apiKeys ...string) *fixture {
	t.Helper()
	f := &fixture{
		search:    &fakeSearcher{},
		suggest:   &fakeSuggester{},
		analytics: &fakeAnalytics{},
		indexer:   &fakeIndexer{},
		health:    &fakeHealth{},
	}
	srv := NewServer(f.search, f.suggest, f.analytics, f.indexer, f.health, nil)
	f.handler = srv.Handler(apiKeys)
	return f
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func hit(t *testing.T, id string, score float64) result.Result {
	t.Helper()
	doc, err := domdoc.New(id, "Title "+id, "content", domdoc.TypePost, []string{"react"}, map[string]string{"lang": "en"})
	require.NoError(t, err)
	doc = doc.WithTimestamps(createdAt, createdAt)
	return result.New(doc, score, mode.Hybrid)
}

func TestSearchDocuments(t *testing.T) {
	f := newFixture(t)
	f.search.resp = searchuc.Response{
		Results:      []result.Result{hit(t, "post_1", 0.63)},
		Total:        1,
		Query:        "react",
		SearchType:   mode.Hybrid,
		ResponseTime: 42 * time.Millisecond,
		Suggestions:  []string{"react hooks"},
	}

	rr := f.do(http.MethodPost, "/api/v1/search", `{
		"query": "react", "type": "hybrid", "limit": 5, "offset": 1, "userId": "u1",
		"filters": {"contentType": ["post"], "tags": ["React"],
			"dateRange": {"start": "2024-01-01T00:00:00Z"}, "metadata": {"lang": "en"}}
	}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	got := f.search.got
	require.NotNil(t, got)
	assert.Equal(t, "react", got.Query())
	assert.Equal(t, 5, got.Limit())
	assert.Equal(t, 1, got.Offset())
	assert.Equal(t, "u1", got.UserID())
	assert.Equal(t, []string{"post"}, got.Filters().ContentTypes())
	assert.Equal(t, []string{"react"}, got.Filters().Tags())
	require.NotNil(t, got.Filters().DateRange())
	assert.True(t, got.Filters().DateRange().End.IsZero())
	assert.Equal(t, map[string]string{"lang": "en"}, got.Filters().Metadata())

	body := decode[searchResponse](t, rr)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "post_1", body.Results[0].ID)
	assert.Equal(t, "post", body.Results[0].ContentType)
	assert.InDelta(t, 0.63, body.Results[0].Score, 1e-9)
	assert.Equal(t, "hybrid", body.Results[0].MatchType)
	assert.Equal(t, createdAt, body.Results[0].CreatedAt)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "hybrid", body.SearchType)
	assert.Equal(t, int64(42), body.ResponseTimeMs)
	assert.Equal(t, []string{"react hooks"}, body.Suggestions)
}

func TestSearchQuery_BindsParameters(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/v1/search?q=react,vue&type=keyword&limit=5&offset=2&contentType=post,user&tags=a&userId=u9", "")
	require.Equal(t, http.StatusOK, rr.Code)

	got := f.search.got
	require.NotNil(t, got)
	assert.Equal(t, "react,vue", got.Query())
	assert.Equal(t, mode.Keyword, got.Mode())
	assert.Equal(t, 5, got.Limit())
	assert.Equal(t, 2, got.Offset())
	assert.Equal(t, []string{"post", "user"}, got.Filters().ContentTypes())
	assert.Equal(t, []string{"a"}, got.Filters().Tags())
	assert.Equal(t, "u9", got.UserID())

	body := decode[searchResponse](t, rr)
	assert.NotNil(t, body.Results)
	assert.NotNil(t, body.Suggestions)
}

func TestSearchQuery_Defaults(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/v1/search?q=go", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, mode.Hybrid, f.search.got.Mode())
	assert.Equal(t, request.DefaultLimit, f.search.got.Limit())
	assert.True(t, f.search.got.Filters().IsEmpty())
}

func TestSearch_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   errorCode
	}{
		{"malformed body", http.MethodPost, "/api/v1/search", `{"query":`, codeBadRequest},
		{"unknown type", http.MethodPost, "/api/v1/search", `{"query":"go","type":"vector"}`, codeValidationFailed},
		{"negative offset", http.MethodPost, "/api/v1/search", `{"query":"go","offset":-1}`, codeValidationFailed},
		{"inverted date range", http.MethodPost, "/api/v1/search",
			`{"query":"go","filters":{"dateRange":{"start":"2024-02-01T00:00:00Z","end":"2024-01-01T00:00:00Z"}}}`,
			codeValidationFailed},
		{"limit not a number", http.MethodGet, "/api/v1/search?q=go&limit=abc", "", codeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(tt.method, tt.target, tt.body)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decode[errorResponse](t, rr).Code)
			assert.Nil(t, f.search.got)
		})
	}
}

func TestSearch_Unavailable(t *testing.T) {
	f := newFixture(t)
	f.search.resp = searchuc.Response{
		Results: []result.Result{}, Query: "go", SearchType: mode.Error, Suggestions: []string{},
	}
	f.search.err = domain.ErrSearchUnavailable

	rr := f.do(http.MethodPost, "/api/v1/search", `{"query":"go"}`)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	body := decode[searchResponse](t, rr)
	assert.Equal(t, "error", body.SearchType)
	assert.Equal(t, "go", body.Query)
	assert.Equal(t, 0, body.Total)
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestSearch_PanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.search.panic = true

	rr := f.do(http.MethodPost, "/api/v1/search", `{"query":"go"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, codeInternalError, decode[errorResponse](t, rr).Code)
}

func TestGetSuggestions(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"default limit", "?q=rea", defaultSuggestionLimit},
		{"explicit limit", "?q=rea&limit=3", 3},
		{"clamped limit", "?q=rea&limit=500", maxSuggestionLimit},
		{"non-positive limit", "?q=rea&limit=0", defaultSuggestionLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.suggest.out = []string{"react", "react hooks"}

			rr := f.do(http.MethodGet, "/api/v1/search/suggestions"+tt.query, "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "rea", f.suggest.q)
			assert.Equal(t, tt.want, f.suggest.limit)

			body := decode[suggestionsResponse](t, rr)
			assert.Equal(t, []string{"react", "react hooks"}, body.Suggestions)
		})
	}
}

func TestGetSuggestions_EmptyIsArray(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/v1/search/suggestions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"query":"","suggestions":[]}`, rr.Body.String())
}

func TestGetAnalytics(t *testing.T) {
	f := newFixture(t)
	f.analytics.summary = domanalytics.Summary{
		TotalQueries:      3,
		UniqueUsers:       1,
		AvgResponseTimeMs: 12.5,
		TopQueries:        []domanalytics.TopQuery{{Query: "react", Count: 2, LastSeen: createdAt}},
		PeriodDays:        30,
	}

	rr := f.do(http.MethodGet, "/api/v1/search/analytics?days=30", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 30, f.analytics.days)

	body := decode[analyticsResponse](t, rr)
	assert.Equal(t, 3, body.TotalQueries)
	assert.InDelta(t, 12.5, body.AvgResponseTimeMs, 1e-9)
	require.Len(t, body.TopQueries, 1)
	assert.Equal(t, "react", body.TopQueries[0].Query)
	assert.Equal(t, 30, body.PeriodDays)
}

func TestGetAnalytics_StoreError(t *testing.T) {
	f := newFixture(t)
	f.analytics.err = fmt.Errorf("read query log: %w", domain.ErrStore)

	rr := f.do(http.MethodGet, "/api/v1/search/analytics", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, 0, f.analytics.days)
	assert.Equal(t, codeStoreUnavailable, decode[errorResponse](t, rr).Code)
}

func TestAdmin_RequiresKey(t *testing.T) {
	f := newFixture(t, "secret")

	rr := f.do(http.MethodGet, "/api/v1/admin/index", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(http.MethodGet, "/api/v1/admin/index", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rr.Code)

	// public routes stay open
	rr = f.do(http.MethodGet, "/api/v1/search?q=go", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRunIndexAction_IndexAll(t *testing.T) {
	f := newFixture(t)
	f.indexer.report = indexing.NewReport(domdoc.TypeUser, domdoc.TypePost)
	f.indexer.report.Add(indexing.TypeReport{ContentType: domdoc.TypeUser, Indexed: 2}, nil)
	f.indexer.report.Add(indexing.TypeReport{ContentType: domdoc.TypePost}, fmt.Errorf("load posts: %w", domain.ErrStore))

	rr := f.do(http.MethodPost, "/api/v1/admin/index", `{"action":"index-all"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[indexActionResponse](t, rr)
	assert.True(t, body.Success)
	assert.Equal(t, map[string]int{"user": 2, "post": 0}, body.Counts)
	require.NotNil(t, body.Total)
	assert.Equal(t, 2, *body.Total)
	require.Len(t, body.Errors["post"], 1)
	assert.Contains(t, body.Errors["post"][0], "load posts")
}

func TestRunIndexAction_ByType(t *testing.T) {
	f := newFixture(t)
	f.indexer.typed = indexing.TypeReport{
		ContentType: domdoc.TypeFile,
		Indexed:     3,
		Embedded:    2,
		Errors:      []error{domain.NewItemError("file_9", "file", domain.ErrStore)},
	}

	rr := f.do(http.MethodPost, "/api/v1/admin/index", `{"action":"index-files"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domdoc.TypeFile, f.indexer.typedGot)

	body := decode[indexActionResponse](t, rr)
	require.NotNil(t, body.Count)
	assert.Equal(t, 3, *body.Count)
	require.NotNil(t, body.Embedded)
	assert.Equal(t, 2, *body.Embedded)
	assert.Len(t, body.Errors["file"], 1)
}

func TestRunIndexAction_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		setup  func(*fakeIndexer)
		status int
		code   errorCode
	}{
		{"unknown action", `{"action":"index-comments"}`, nil, http.StatusBadRequest, codeUnknownAction},
		{"malformed body", `{`, nil, http.StatusBadRequest, codeBadRequest},
		{"missing source", `{"action":"index-users"}`, func(ix *fakeIndexer) {
			ix.typedErr = fmt.Errorf("load users: %w", domain.ErrSourceMissing)
		}, http.StatusNotFound, codeSourceMissing},
		{"provider unavailable", `{"action":"reindex-embeddings"}`, func(ix *fakeIndexer) {
			ix.reembErr = domain.ErrProviderUnavailable
		}, http.StatusServiceUnavailable, codeProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.indexer)
			}

			rr := f.do(http.MethodPost, "/api/v1/admin/index", tt.body)
			require.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decode[errorResponse](t, rr).Code)
		})
	}
}

func TestRunIndexAction_ReindexAndStats(t *testing.T) {
	f := newFixture(t)
	f.indexer.reindexed = 5
	f.indexer.stats = indexing.Stats{
		TotalDocuments:          6,
		DocumentsWithEmbeddings: 4,
		CountsByContentType:     map[domdoc.ContentType]int{domdoc.TypeUser: 2, domdoc.TypePost: 4},
		RecentlyIndexedCount:    1,
	}

	rr := f.do(http.MethodPost, "/api/v1/admin/index", `{"action":"reindex-embeddings"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[indexActionResponse](t, rr)
	require.NotNil(t, body.Count)
	assert.Equal(t, 5, *body.Count)

	rr = f.do(http.MethodPost, "/api/v1/admin/index", `{"action":"get-stats"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode[indexActionResponse](t, rr)
	require.NotNil(t, body.Stats)
	assert.Equal(t, 6, body.Stats.TotalDocuments)
	assert.Equal(t, map[string]int{"user": 2, "post": 4}, body.Stats.CountsByContentType)
}

func TestGetIndexStatus(t *testing.T) {
	f := newFixture(t)
	f.indexer.available = true
	f.indexer.stats = indexing.Stats{TotalDocuments: 2, CountsByContentType: map[domdoc.ContentType]int{}}

	rr := f.do(http.MethodGet, "/api/v1/admin/index", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[indexStatusResponse](t, rr)
	assert.True(t, body.ProviderAvailable)
	assert.Equal(t, 2, body.Stats.TotalDocuments)
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodDelete, "/api/v1/admin/documents/post_7", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "post_7", f.indexer.removed)

	f.indexer.removeErr = fmt.Errorf("delete post_8: %w", domain.ErrDocumentNotFound)
	rr = f.do(http.MethodDelete, "/api/v1/admin/documents/post_8", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, codeDocumentNotFound, decode[errorResponse](t, rr).Code)
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			f.health.report = healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.ComponentStore: healthuc.CheckOK},
			}

			rr := f.do(http.MethodGet, "/health", "")
			require.Equal(t, tt.want, rr.Code)

			body := decode[healthResponse](t, rr)
			assert.Equal(t, string(tt.status), body.Status)
			assert.Equal(t, "ok", body.Checks["store"])
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/v1/collections", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}
