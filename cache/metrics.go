package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "uls-sdk/cache"

// Metrics holds the cache's OpenTelemetry counters. The otel API is a
// no-op unless the host application installs a meter provider, so
// instrumentation is always on.
type Metrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	domainExpired metric.Int64Counter
}

func newMetrics() *Metrics {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	m.hits, _ = meter.Int64Counter("uls.cache.hits",
		metric.WithDescription("License cache hits"))
	m.misses, _ = meter.Int64Counter("uls.cache.misses",
		metric.WithDescription("License cache misses"))
	m.domainExpired, _ = meter.Int64Counter("uls.cache.domain_expired",
		metric.WithDescription("Entries dropped because the license itself expired"))
	return m
}

func (m *Metrics) hit() {
	if m.hits != nil {
		m.hits.Add(context.Background(), 1)
	}
}

func (m *Metrics) miss() {
	if m.misses != nil {
		m.misses.Add(context.Background(), 1)
	}
}

func (m *Metrics) expired() {
	if m.domainExpired != nil {
		m.domainExpired.Add(context.Background(), 1)
	}
}
