package search

import (
	"cmp"
	"math"
	"slices"

	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/result"
)

// Weights controls hybrid score fusion and branch sizing.
type Weights struct {
	// Semantic and Keyword multiply the branch scores.
	Semantic float64
	Keyword  float64

	// SemanticLimit and KeywordLimit size each branch relative to the requested window.
	SemanticLimit float64
	KeywordLimit  float64
}

// DefaultWeights returns the canonical 0.7/0.3 fusion with 0.7/0.5 branch sizing.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Keyword: 0.3, SemanticLimit: 0.7, KeywordLimit: 0.5}
}

// subLimit returns ceil(window*factor), at least 1.
func subLimit(window int, factor float64) int {
	return max(1, int(math.Ceil(float64(window)*factor)))
}

// fuse merges both branches by document id:
//
//	semantic only: s*ws
//	keyword only:  k*wk
//	both:          min(1, s*ws + k*wk)
//
// Every fused hit has match type hybrid. The output is unsorted.
func fuse(semantic, keyword []result.Result, w Weights) []result.Result {
	type entry struct {
		res     result.Result
		sem, kw float64
		inSem   bool
		inKw    bool
	}

	merged := make(map[string]*entry, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for _, r := range semantic {
		if e, ok := merged[r.DocumentID()]; ok {
			e.sem = max(e.sem, r.Score())
			continue
		}
		merged[r.DocumentID()] = &entry{res: r, sem: r.Score(), inSem: true}
		order = append(order, r.DocumentID())
	}
	for _, r := range keyword {
		e, ok := merged[r.DocumentID()]
		if !ok {
			merged[r.DocumentID()] = &entry{res: r, kw: r.Score(), inKw: true}
			order = append(order, r.DocumentID())
			continue
		}
		e.kw = max(e.kw, r.Score())
		e.inKw = true
	}

	out := make([]result.Result, 0, len(order))
	for _, id := range order {
		e := merged[id]
		var score float64
		switch {
		case e.inSem && e.inKw:
			score = min(1, e.sem*w.Semantic+e.kw*w.Keyword)
		case e.inSem:
			score = e.sem * w.Semantic
		default:
			score = e.kw * w.Keyword
		}
		out = append(out, result.New(e.res.Document(), score, mode.Hybrid))
	}
	return out
}

// rank sorts by score desc, then newer createdAt, then ascending id.
func rank(results []result.Result) {
	slices.SortFunc(results, func(a, b result.Result) int {
		if c := cmp.Compare(b.Score(), a.Score()); c != 0 {
			return c
		}
		da, db := a.Document(), b.Document()
		if c := db.CreatedAt().Compare(da.CreatedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.DocumentID(), b.DocumentID())
	})
}

// page returns results[offset : offset+limit], clipped to bounds.
func page(results []result.Result, offset, limit int) []result.Result {
	if offset >= len(results) {
		return []result.Result{}
	}
	end := min(len(results), offset+limit)
	return results[offset:end]
}
