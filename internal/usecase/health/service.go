// Package health aggregates store and provider checks into one status.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every configured component answered.
	Healthy Status = "ok"
	// Degraded means search still answers, keyword-only.
	Degraded Status = "degraded"
	// Unhealthy means the document store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK       CheckResult = "ok"
	CheckError    CheckResult = "error"
	CheckDisabled CheckResult = "disabled"
)

// Component names reported in Report.Checks.
const (
	ComponentStore     = "store"
	ComponentEmbedding = "embedding"
)

const checkTimeout = 2 * time.Second

// Report aggregates component results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs the health checks.
type Service struct {
	store    StorePinger
	provider ProviderProbe
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Service. provider may be nil.
func New(store StorePinger, provider ProviderProbe, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, provider: provider, timeout: checkTimeout, logger: logger}
}

// Check probes the store and the provider concurrently under one deadline.
// A store failure makes the service Unhealthy; a provider failure only Degraded.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var storeResult, providerResult CheckResult
	var g errgroup.Group
	g.Go(func() error {
		storeResult = s.probe(ctx, ComponentStore, s.store.Ping)
		return nil
	})
	g.Go(func() error {
		if s.provider == nil || !s.provider.Available() {
			providerResult = CheckDisabled
			return nil
		}
		providerResult = s.probe(ctx, ComponentEmbedding, s.provider.HealthCheck)
		return nil
	})
	_ = g.Wait()

	status := Healthy
	switch {
	case storeResult == CheckError:
		status = Unhealthy
	case providerResult == CheckError:
		status = Degraded
	}

	return Report{
		Status: status,
		Checks: map[string]CheckResult{
			ComponentStore:     storeResult,
			ComponentEmbedding: providerResult,
		},
	}
}

func (s *Service) probe(ctx context.Context, component string, check func(context.Context) error) CheckResult {
	start := time.Now()
	if err := check(ctx); err != nil {
		s.logger.Warn("Health check failed",
			zap.String("component", component),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return CheckError
	}
	return CheckOK
}
