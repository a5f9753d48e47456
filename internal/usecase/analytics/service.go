package analytics

import (
	"context"
	"fmt"
	"time"

	domanalytics "github.com/kailas-cloud/omnisearch/internal/domain/analytics"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
)

// Reader reads every query record newer than since, batch records per round trip.
type Reader interface {
	Since(ctx context.Context, since time.Time, batch int) ([]query.Record, error)
}

// Service aggregates search usage.
type Service struct {
	store Reader
	// batch is the page size of the window scan; 0 reads it in one call.
	batch int
	now  func() time.Time
}

// NewService creates an analytics service.
func NewService(store Reader, batch int) *Service {
	return &Service{store: store, batch: batch, now: time.Now}
}

// GetAnalytics summarizes queries of the last days (default 7).
func (s *Service) GetAnalytics(ctx context.Context, days int) (domanalytics.Summary, error) {
	days = domanalytics.NormalizeDays(days)
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	records, err := s.store.Since(ctx, since, s.batch)
	if err != nil {
		return domanalytics.Summary{}, fmt.Errorf("read query log: %w", err)
	}
	return domanalytics.Aggregate(records, days), nil
}
