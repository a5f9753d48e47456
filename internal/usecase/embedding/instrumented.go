// Package embedding holds the embedder decorators that sit between the
// provider transport and the search and indexing usecases.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain"
)

// InstrumentedEmbedder validates provider vectors before they reach the store
// and logs each call. Request metrics live in the transport.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	dimensions int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. dimensions <= 0 disables the size check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, dimensions int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:      inner,
		dimensions: dimensions,
		logger:     logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Available forwards the inner provider's availability.
func (p *InstrumentedEmbedder) Available() bool { return domain.IsAvailable(p.inner) }

// Embed delegates to the inner embedder. Vectors of the wrong size or with
// non-finite components are rejected with domain.ErrVectorDimMismatch.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	if err != nil {
		// An unconfigured provider is a steady state, not an incident.
		if errors.Is(err, domain.ErrProviderUnavailable) {
			p.logger.Debug("Embedding skipped, provider unavailable")
		} else {
			p.logger.Warn("Embedding failed", zap.Duration("duration", elapsed), zap.Error(err))
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if err := p.validate(result.Embedding); err != nil {
		p.logger.Warn("Embedding rejected", zap.Int("dimensions", len(result.Embedding)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding completed",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

func (p *InstrumentedEmbedder) validate(vec []float32) error {
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return fmt.Errorf("got %d dimensions, want %d: %w", len(vec), p.dimensions, domain.ErrVectorDimMismatch)
	}
	for i, v := range vec {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("component %d is not finite: %w", i, domain.ErrVectorDimMismatch)
		}
	}
	return nil
}
