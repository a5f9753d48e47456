package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/omnisearch/internal/logger"
	"github.com/kailas-cloud/omnisearch/internal/metrics"
	healthuc "github.com/kailas-cloud/omnisearch/internal/usecase/health"
)

// Suggestion endpoint limits.
const (
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search, analytics and admin HTTP API.
type Server struct {
	search        Searcher
	suggest       Suggester
	analytics     AnalyticsReader
	indexer       Indexer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	suggest Suggester,
	analytics AnalyticsReader,
	indexer Indexer,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:    search,
		suggest:   suggest,
		analytics: analytics,
		indexer:   indexer,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrSourceMissing, http.StatusNotFound, codeSourceMissing),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable, codeProviderUnavailable),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, codeSearchUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, codeTimeout),
		sentinelHandler(domain.ErrStore, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Handler assembles the router. apiKeys guard the /api/v1/admin routes; empty disables auth.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chirouter.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLog(s.logger))
	r.Use(recoverJSON(s.logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Get("/search", s.SearchQuery)
		r.Post("/search", s.SearchDocuments)
		r.Get("/search/suggestions", s.GetSuggestions)
		r.Get("/search/analytics", s.GetAnalytics)

		r.Group(func(r chirouter.Router) {
			r.Use(AdminAuth(apiKeys))
			r.Post("/admin/index", s.RunIndexAction)
			r.Get("/admin/index", s.GetIndexStatus)
			r.Delete("/admin/documents/{id}", s.DeleteDocument)
		})
	})
	return r
}

// SearchQuery handles GET /api/v1/search.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	var params searchParams
	err := bindQuery(r,
		queryBinding{name: "q", explode: true, dest: &params.Q},
		queryBinding{name: "type", explode: true, dest: &params.Type},
		queryBinding{name: "limit", explode: true, dest: &params.Limit},
		queryBinding{name: "offset", explode: true, dest: &params.Offset},
		queryBinding{name: "contentType", dest: &params.ContentType},
		queryBinding{name: "tags", dest: &params.Tags},
		queryBinding{name: "userId", explode: true, dest: &params.UserID},
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	body := searchRequestBody{
		Query:  deref(params.Q),
		Type:   deref(params.Type),
		Limit:  params.Limit,
		Offset: params.Offset,
		UserID: deref(params.UserID),
	}
	if params.ContentType != nil || params.Tags != nil {
		body.Filters = &filtersBody{ContentType: deref(params.ContentType), Tags: deref(params.Tags)}
	}
	s.runSearch(w, r, body)
}

// SearchDocuments handles POST /api/v1/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, body)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, body searchRequestBody) {
	req, err := searchRequestFromBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	status := http.StatusOK
	resp, err := s.search.Search(r.Context(), &req)
	switch {
	case errors.Is(err, domain.ErrSearchUnavailable):
		// Every strategy failed; the body still carries searchType "error".
		logpkg.FromContextOr(r.Context(), s.logger).Warn("search unavailable", zap.Error(err))
		status = http.StatusServiceUnavailable
	case err != nil:
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]searchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultToBody(&resp.Results[i])
	}
	suggestions := resp.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, status, searchResponse{
		Results:        items,
		Total:          resp.Total,
		Query:          resp.Query,
		SearchType:     string(resp.SearchType),
		ResponseTimeMs: resp.ResponseTime.Milliseconds(),
		Suggestions:    suggestions,
	})
}

// GetSuggestions handles GET /api/v1/search/suggestions.
func (s *Server) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	var q *string
	var limit *int
	err := bindQuery(r,
		queryBinding{name: "q", explode: true, dest: &q},
		queryBinding{name: "limit", explode: true, dest: &limit},
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	n := defaultSuggestionLimit
	if limit != nil && *limit > 0 {
		n = min(*limit, maxSuggestionLimit)
	}

	suggestions := s.suggest.Suggest(r.Context(), deref(q), n)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Query: deref(q), Suggestions: suggestions})
}

// GetAnalytics handles GET /api/v1/search/analytics.
func (s *Server) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	var days *int
	if err := bindQuery(r, queryBinding{name: "days", explode: true, dest: &days}); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	summary, err := s.analytics.GetAnalytics(r.Context(), deref(days))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToBody(summary))
}

// RunIndexAction handles POST /api/v1/admin/index.
func (s *Server) RunIndexAction(w http.ResponseWriter, r *http.Request) {
	var req indexActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	resp := indexActionResponse{Action: req.Action, Success: true}

	switch req.Action {
	case actionIndexAll:
		report := s.indexer.IndexAll(ctx)
		resp.Counts = make(map[string]int, len(report.Counts))
		for ct, n := range report.Counts {
			resp.Counts[string(ct)] = n
		}
		resp.Total = &report.Total
		if len(report.Errors) > 0 {
			resp.Errors = make(map[string][]string, len(report.Errors))
			for ct, errs := range report.Errors {
				resp.Errors[string(ct)] = errorStrings(errs)
			}
		}

	case actionIndexUsers, actionIndexFiles, actionIndexStreams, actionIndexPosts:
		ct := typedActions[req.Action]
		tr, err := s.indexer.IndexByType(ctx, ct)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Count = &tr.Indexed
		resp.Embedded = &tr.Embedded
		if len(tr.Errors) > 0 {
			resp.Errors = map[string][]string{string(ct): errorStrings(tr.Errors)}
		}

	case actionReindexEmbeddings:
		n, err := s.indexer.ReindexEmbeddings(ctx)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		resp.Count = &n

	case actionGetStats:
		st, err := s.indexer.Stats(ctx)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		body := statsToBody(st)
		resp.Stats = &body

	default:
		writeError(w, http.StatusBadRequest, codeUnknownAction, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetIndexStatus handles GET /api/v1/admin/index.
func (s *Server) GetIndexStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.indexer.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexStatusResponse{
		Stats:             statsToBody(st),
		ProviderAvailable: s.indexer.ProviderAvailable(),
	})
}

// DeleteDocument handles DELETE /api/v1/admin/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")
	if err := s.indexer.Remove(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health. Degraded still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type queryBinding struct {
	name    string
	explode bool
	dest    any
}

// bindQuery binds optional form-style query parameters into pointer destinations.
// Non-exploded parameters accept comma-separated lists.
func bindQuery(r *http.Request, bindings ...queryBinding) error {
	values := r.URL.Query()
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", b.explode, false, b.name, values, b.dest); err != nil {
			return fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return nil
}

func searchRequestFromBody(body searchRequestBody) (request.Request, error) {
	filters, err := filtersFromBody(body.Filters)
	if err != nil {
		return request.Request{}, fmt.Errorf("parse filters: %w", err)
	}

	r, err := request.New(
		body.Query, mode.Mode(body.Type), filters, deref(body.Limit), deref(body.Offset), body.UserID,
	)
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

func filtersFromBody(f *filtersBody) (filter.Filters, error) {
	if f == nil {
		return filter.Filters{}, nil
	}

	var dr *filter.DateRange
	if f.DateRange != nil {
		dr = &filter.DateRange{}
		if f.DateRange.Start != nil {
			dr.Start = *f.DateRange.Start
		}
		if f.DateRange.End != nil {
			dr.End = *f.DateRange.End
		}
	}

	filters, err := filter.New(f.ContentType, f.Tags, dr, f.Metadata)
	if err != nil {
		return filter.Filters{}, fmt.Errorf("new filters: %w", err)
	}
	return filters, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrDocumentNotFound,
		domain.ErrSourceMissing,
		domain.ErrProviderUnavailable,
		domain.ErrSearchUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrTimeout,
		domain.ErrStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
