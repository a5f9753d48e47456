package health

import "context"

// StorePinger is the document store as seen by health checks.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderProbe is the embedding provider as seen by health checks. A provider
// that is not Available is reported as disabled and never probed.
type ProviderProbe interface {
	Available() bool
	HealthCheck(ctx context.Context) error
}
