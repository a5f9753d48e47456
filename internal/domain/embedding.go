package domain

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Embedder turns text into a vector. Search embeds queries and the indexer
// embeds document text through the same contract.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// AvailabilityChecker is implemented by providers that can be switched off by
// configuration. Unavailable means degrade to keyword search, not fail.
type AvailabilityChecker interface {
	Available() bool
}

// EmbeddingResult is a vector with the token usage reported by the provider.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// IsAvailable reports availability of v. Values without Available() count as available.
func IsAvailable(v any) bool {
	if v == nil {
		return false
	}
	if ac, ok := v.(AvailabilityChecker); ok {
		return ac.Available()
	}
	return true
}

// InstructionEmbedder prefixes every text with a model instruction, for
// asymmetric models that embed queries differently from documents.
type InstructionEmbedder struct {
	inner  Embedder
	prefix string
}

// NewInstructionEmbedder wraps inner. A space is added after instruction
// unless it already ends in whitespace.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	prefix := instruction
	if prefix != "" && !unicode.IsSpace(rune(prefix[len(prefix)-1])) {
		prefix += " "
	}
	return &InstructionEmbedder{inner: inner, prefix: prefix}
}

// Embed prefixes the trimmed text and delegates.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.prefix+strings.TrimSpace(text))
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// Available forwards the inner provider's availability.
func (e *InstructionEmbedder) Available() bool { return IsAvailable(e.inner) }
