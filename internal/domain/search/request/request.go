package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
	MaxOffset      = 1000
)

// Request is a validated search query.
// An empty or whitespace query is valid and yields an empty result set.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Filters
	limit      int
	offset     int
	userID     string
}

// New validates and normalizes search parameters.
// Defaults: mode=hybrid, limit=20, offset=0. Limit is clamped to MaxLimit.
func New(query string, m mode.Mode, filters filter.Filters, limit, offset int, userID string) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search type: %q", m)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		return Request{}, fmt.Errorf("offset must not be negative")
	}
	if offset > MaxOffset {
		return Request{}, fmt.Errorf("offset too large (max %d)", MaxOffset)
	}

	return Request{
		query:      strings.TrimSpace(query),
		searchMode: m,
		filters:    filters,
		limit:      limit,
		offset:     offset,
		userID:     userID,
	}, nil
}

// Query returns the trimmed search query text.
func (r *Request) Query() string { return r.query }

// IsEmpty reports whether the query has no searchable text.
func (r *Request) IsEmpty() bool { return r.query == "" }

// Mode returns the requested search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the request filters.
func (r *Request) Filters() filter.Filters { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of ranked results to skip.
func (r *Request) Offset() int { return r.offset }

// Window is the number of ranked results needed to serve the requested page.
func (r *Request) Window() int { return r.offset + r.limit }

// UserID returns the caller identity recorded in analytics, may be empty.
func (r *Request) UserID() string { return r.userID }
