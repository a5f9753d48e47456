package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
)

// Record is an append-only log entry describing one executed search.
type Record struct {
	id             string
	text           string
	searchType     mode.Mode
	filters        filter.Filters
	resultCount    int
	responseTimeMs int64
	userID         string
	timestamp      time.Time
}

// New creates a record with a fresh random ID.
func New(
	text string, searchType mode.Mode, filters filter.Filters,
	resultCount int, responseTime time.Duration, userID string, timestamp time.Time,
) Record {
	return Record{
		id:             uuid.NewString(),
		text:           text,
		searchType:     searchType,
		filters:        filters,
		resultCount:    resultCount,
		responseTimeMs: responseTime.Milliseconds(),
		userID:         userID,
		timestamp:      timestamp,
	}
}

// Reconstruct creates a Record without generating an ID (storage hydration).
func Reconstruct(
	id, text string, searchType mode.Mode, filters filter.Filters,
	resultCount int, responseTimeMs int64, userID string, timestamp time.Time,
) Record {
	return Record{
		id: id, text: text, searchType: searchType, filters: filters,
		resultCount: resultCount, responseTimeMs: responseTimeMs,
		userID: userID, timestamp: timestamp,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Text returns the query text.
func (r *Record) Text() string { return r.text }

// Type returns the executed strategy.
func (r *Record) Type() mode.Mode { return r.searchType }

// Filters returns the request filters.
func (r *Record) Filters() filter.Filters { return r.filters }

// ResultCount returns the number of results returned.
func (r *Record) ResultCount() int { return r.resultCount }

// ResponseTimeMs returns the end-to-end latency in milliseconds.
func (r *Record) ResponseTimeMs() int64 { return r.responseTimeMs }

// UserID returns the caller identity, may be empty.
func (r *Record) UserID() string { return r.userID }

// Timestamp returns when the search was executed.
func (r *Record) Timestamp() time.Time { return r.timestamp }
