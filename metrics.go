package ulsdk

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "uls-sdk/client"

// clientMetrics holds the client's OpenTelemetry counters. No-op
// unless the host application installs a meter provider.
type clientMetrics struct {
	validations metric.Int64Counter
	cacheServed metric.Int64Counter
	failures    metric.Int64Counter
}

func newClientMetrics() *clientMetrics {
	meter := otel.Meter(meterName)
	m := &clientMetrics{}
	m.validations, _ = meter.Int64Counter("uls.client.validations",
		metric.WithDescription("License validations completed against the server"))
	m.cacheServed, _ = meter.Int64Counter("uls.client.validations_cached",
		metric.WithDescription("License validations answered from cache"))
	m.failures, _ = meter.Int64Counter("uls.client.validation_errors",
		metric.WithDescription("License validations that failed with a transport error"))
	return m
}

func (m *clientMetrics) validationCompleted(valid bool) {
	if m.validations != nil {
		m.validations.Add(context.Background(), 1,
			metric.WithAttributes(attribute.Bool("valid", valid)))
	}
}

func (m *clientMetrics) validationServedFromCache() {
	if m.cacheServed != nil {
		m.cacheServed.Add(context.Background(), 1)
	}
}

func (m *clientMetrics) validationFailed() {
	if m.failures != nil {
		m.failures.Add(context.Background(), 1)
	}
}
