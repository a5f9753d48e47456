package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/query"
)

// Aggregation constants.
const (
	DefaultDays   = 7
	MaxDays       = 365
	TopQueryLimit = 10
)

// TopQuery is one entry of the most frequent queries list.
type TopQuery struct {
	Query    string
	Count    int
	LastSeen time.Time
}

// Summary aggregates search usage over a period.
type Summary struct {
	TotalQueries      int
	UniqueUsers       int
	AvgResponseTimeMs float64
	TopQueries        []TopQuery
	PeriodDays        int
}

// Aggregate summarizes records. Callers pass records already restricted to the period.
// Top queries are ranked by count of identical text, ties by most recent occurrence, then text.
func Aggregate(records []query.Record, days int) Summary {
	s := Summary{TotalQueries: len(records), PeriodDays: days, TopQueries: []TopQuery{}}
	if len(records) == 0 {
		return s
	}

	users := make(map[string]struct{})
	byText := make(map[string]*TopQuery)
	var totalMs int64

	for i := range records {
		r := &records[i]
		totalMs += r.ResponseTimeMs()
		if r.UserID() != "" {
			users[r.UserID()] = struct{}{}
		}
		if r.Text() == "" {
			continue
		}
		tq, ok := byText[r.Text()]
		if !ok {
			tq = &TopQuery{Query: r.Text()}
			byText[r.Text()] = tq
		}
		tq.Count++
		if r.Timestamp().After(tq.LastSeen) {
			tq.LastSeen = r.Timestamp()
		}
	}

	s.UniqueUsers = len(users)
	s.AvgResponseTimeMs = math.Round(float64(totalMs)/float64(len(records))*100) / 100

	top := make([]TopQuery, 0, len(byText))
	for _, tq := range byText {
		top = append(top, *tq)
	}
	slices.SortFunc(top, func(a, b TopQuery) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if len(top) > TopQueryLimit {
		top = top[:TopQueryLimit]
	}
	s.TopQueries = top
	return s
}

// NormalizeDays maps a requested period onto [1, MaxDays], defaulting non-positive values.
func NormalizeDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	return min(days, MaxDays)
}
