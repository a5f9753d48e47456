// Package querylog persists search query records in a Redis sorted set scored by timestamp.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
)

// store is the consumer interface for the query log (ISP).
type store interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, minScore float64, offset, count int) ([]string, error)
	ZRevRange(ctx context.Context, key string, count int) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key string, maxScore float64) (int64, error)
}

// Repo stores query records.
type Repo struct {
	store  store
	key    string
	logger *zap.Logger
}

// New creates a query log repository. Records live under <keyPrefix>query_log.
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, key: keyPrefix + "query_log", logger: logger}
}

// Append writes a record.
func (r *Repo) Append(ctx context.Context, rec query.Record) error {
	data, err := json.Marshal(toDTO(&rec))
	if err != nil {
		return fmt.Errorf("marshal query record: %w", err)
	}
	if err := r.store.ZAdd(ctx, r.key, float64(rec.Timestamp().UnixMilli()), string(data)); err != nil {
		return fmt.Errorf("append query record: %w: %w", domain.ErrStore, err)
	}
	return nil
}

// Since returns every record with timestamp >= since, oldest first. The window
// is read batch members per round trip; batch <= 0 reads it in one.
func (r *Repo) Since(ctx context.Context, since time.Time, batch int) ([]query.Record, error) {
	minScore := float64(since.UnixMilli())
	var out []query.Record
	for offset := 0; ; offset += batch {
		members, err := r.store.ZRangeByScore(ctx, r.key, minScore, offset, batch)
		if err != nil {
			return nil, fmt.Errorf("read query log at offset %d: %w: %w", offset, domain.ErrStore, err)
		}
		out = append(out, r.decode(members)...)
		if batch <= 0 || len(members) < batch {
			return out, nil
		}
	}
}

// Recent returns the newest records first.
func (r *Repo) Recent(ctx context.Context, n int) ([]query.Record, error) {
	members, err := r.store.ZRevRange(ctx, r.key, n)
	if err != nil {
		return nil, fmt.Errorf("read recent queries: %w: %w", domain.ErrStore, err)
	}
	return r.decode(members), nil
}

// Trim removes records older than before and returns how many were dropped.
func (r *Repo) Trim(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.store.ZRemRangeByScore(ctx, r.key, float64(before.UnixMilli()-1))
	if err != nil {
		return 0, fmt.Errorf("trim query log: %w: %w", domain.ErrStore, err)
	}
	return n, nil
}

// decode skips members that do not parse; the log is append-only and a bad
// member must not hide the rest of the history.
func (r *Repo) decode(members []string) []query.Record {
	out := make([]query.Record, 0, len(members))
	for _, m := range members {
		var d recordDTO
		if err := json.Unmarshal([]byte(m), &d); err != nil {
			r.logger.Warn("Skipping malformed query record", zap.Error(err))
			continue
		}
		out = append(out, d.toRecord())
	}
	return out
}

type dateRangeDTO struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type filtersDTO struct {
	ContentTypes []string          `json:"contentTypes,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	DateRange    *dateRangeDTO     `json:"dateRange,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type recordDTO struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Type           string     `json:"type"`
	Filters        filtersDTO `json:"filters"`
	ResultCount    int        `json:"resultCount"`
	ResponseTimeMs int64      `json:"responseTimeMs"`
	UserID         string     `json:"userId,omitempty"`
	Timestamp      int64      `json:"timestamp"`
}

func toDTO(rec *query.Record) recordDTO {
	f := rec.Filters()
	fd := filtersDTO{
		ContentTypes: f.ContentTypes(),
		Tags:         f.Tags(),
		Metadata:     f.Metadata(),
	}
	if dr := f.DateRange(); dr != nil {
		fd.DateRange = &dateRangeDTO{Start: unixMilliOrZero(dr.Start), End: unixMilliOrZero(dr.End)}
	}
	return recordDTO{
		ID:             rec.ID(),
		Text:           rec.Text(),
		Type:           string(rec.Type()),
		Filters:        fd,
		ResultCount:    rec.ResultCount(),
		ResponseTimeMs: rec.ResponseTimeMs(),
		UserID:         rec.UserID(),
		Timestamp:      rec.Timestamp().UnixMilli(),
	}
}

func (d *recordDTO) toRecord() query.Record {
	var dr *filter.DateRange
	if d.Filters.DateRange != nil {
		dr = &filter.DateRange{
			Start: timeOrZero(d.Filters.DateRange.Start),
			End:   timeOrZero(d.Filters.DateRange.End),
		}
	}
	// stored filters were valid when written; fall back to empty rather than drop the record
	filters, err := filter.New(d.Filters.ContentTypes, d.Filters.Tags, dr, d.Filters.Metadata)
	if err != nil {
		filters = filter.Filters{}
	}
	return query.Reconstruct(
		d.ID, d.Text, mode.Mode(d.Type), filters,
		d.ResultCount, d.ResponseTimeMs, d.UserID, time.UnixMilli(d.Timestamp).UTC(),
	)
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timeOrZero(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
