package result

import (
	"math"

	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
	"github.com/kailas-cloud/omnisearch/internal/domain/search/mode"
)

// Result is a single search hit. Score is always within [0,1].
type Result struct {
	doc       domdoc.Document
	score     float64
	matchType mode.Mode
}

// New creates a search result, clamping the score into [0,1].
func New(doc domdoc.Document, score float64, matchType mode.Mode) Result {
	return Result{doc: doc, score: Clamp(score), matchType: matchType}
}

// DocumentID returns the matched document identifier.
func (r *Result) DocumentID() string { return r.doc.ID() }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// MatchType returns the strategy that produced the hit.
func (r *Result) MatchType() mode.Mode { return r.matchType }

// Document returns the matched document.
func (r *Result) Document() domdoc.Document { return r.doc }

// Clamp maps any score into [0,1]. NaN maps to 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
