package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable signals that the embedding or suggestion provider is not configured.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrEmbeddingProviderError signals a failed call to a configured provider.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStore signals a document store or query log failure.
	ErrStore = errors.New("store error")
	// ErrInvalidRequest signals a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTimeout signals that an operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals an embedding of the wrong dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrSearchUnavailable is returned when every search strategy, fallback included, failed.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrSourceMissing signals that a content source table does not exist.
	ErrSourceMissing = errors.New("content source missing")
)

// ItemError records a single content unit that failed to index.
type ItemError struct {
	ID          string
	ContentType string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.ContentType, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// NewItemError creates an indexing item error.
func NewItemError(id, contentType string, err error) *ItemError {
	return &ItemError{ID: id, ContentType: contentType, Err: err}
}
