package indexing

import (
	domdoc "github.com/kailas-cloud/omnisearch/internal/domain/document"
)

// State is the indexing lifecycle state of a single content unit.
//
//	pending -> embedding-pending -> embedded   (provider available)
//	pending -> indexed                         (no embedding)
//	any     -> failed                          (store write error, retried next run)
type State string

// Indexing state values.
const (
	StatePending          State = "pending"
	StateEmbeddingPending State = "embedding-pending"
	StateEmbedded         State = "embedded"
	StateIndexed          State = "indexed"
	StateFailed           State = "failed"
)

// IsTerminal reports whether a unit in this state needs no further work in this run.
func (s State) IsTerminal() bool {
	return s == StateEmbedded || s == StateIndexed || s == StateFailed
}

// ItemResult is the outcome of indexing one content unit.
type ItemResult struct {
	id    string
	state State
	err   error
}

// NewResult creates a successful item result.
func NewResult(id string, state State) ItemResult { return ItemResult{id: id, state: state} }

// NewFailed creates a failed item result.
func NewFailed(id string, err error) ItemResult {
	return ItemResult{id: id, state: StateFailed, err: err}
}

// ID returns the document identifier.
func (r ItemResult) ID() string { return r.id }

// State returns the final state.
func (r ItemResult) State() State { return r.state }

// Err returns the error, if any.
func (r ItemResult) Err() error { return r.err }

// TypeReport is the outcome of one per-type indexing job.
type TypeReport struct {
	ContentType domdoc.ContentType
	Indexed     int
	Embedded    int
	Errors      []error
}

// Report aggregates the outcome of a full indexing run.
type Report struct {
	Counts map[domdoc.ContentType]int
	Total  int
	Errors map[domdoc.ContentType][]error
}

// NewReport creates an empty report with zero counts for the given types.
func NewReport(types ...domdoc.ContentType) Report {
	r := Report{
		Counts: make(map[domdoc.ContentType]int, len(types)),
		Errors: make(map[domdoc.ContentType][]error),
	}
	for _, t := range types {
		r.Counts[t] = 0
	}
	return r
}

// Add merges a per-type report. A job-level error is recorded alongside item errors.
func (r *Report) Add(tr TypeReport, jobErr error) {
	r.Counts[tr.ContentType] = tr.Indexed
	r.Total += tr.Indexed
	errs := tr.Errors
	if jobErr != nil {
		errs = append(errs, jobErr)
	}
	if len(errs) > 0 {
		r.Errors[tr.ContentType] = errs
	}
}

// Stats summarizes the document store contents.
type Stats struct {
	TotalDocuments          int
	DocumentsWithEmbeddings int
	CountsByContentType     map[domdoc.ContentType]int
	RecentlyIndexedCount    int
}
