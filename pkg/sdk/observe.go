package omnisearch

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// clientMetrics holds prometheus metrics for API calls.
type clientMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnisearch",
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Total API calls by endpoint and outcome.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "omnisearch",
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "API call duration in seconds, including response decoding.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("omnisearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("omnisearch: register metric: %w", err)
	}
	return nil
}

// observer logs and counts API calls.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *clientMetrics
	if reg != nil {
		var err error
		m, err = newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(endpoint string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			status = strconv.Itoa(apiErr.StatusCode)
		case err != nil:
			status = "error"
		}
		o.metrics.calls.WithLabelValues(endpoint, status).Inc()
		o.metrics.duration.WithLabelValues(endpoint).Observe(
			dur.Seconds(),
		)
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("omnisearch call failed",
				"endpoint", endpoint,
				"duration", dur,
				"error", err,
			)
		} else {
			o.logger.Debug("omnisearch call completed",
				"endpoint", endpoint,
				"duration", dur,
			)
		}
	}
}
