package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records fixture outcomes for a harness run.
//
// A disabled collector is a valid value whose methods do nothing.
type MetricsCollector struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	fixtureRuns     metric.Int64Counter
	fixtureDuration metric.Float64Histogram
	suitePassed     metric.Int64Gauge
	suiteTotal      metric.Int64Gauge
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	// The provider stays local: the harness never installs a global one.
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("regress")

	fixtureRuns, err := meter.Int64Counter(
		"regress_fixture_runs",
		metric.WithDescription("Fixtures executed, by final state"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture_runs counter: %w", err)
	}

	fixtureDuration, err := meter.Float64Histogram(
		"regress_fixture_duration",
		metric.WithDescription("Wall-clock time of one compiler invocation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture_duration histogram: %w", err)
	}

	suitePassed, err := meter.Int64Gauge(
		"regress_suite_passed",
		metric.WithDescription("Fixtures passed in the last run"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suite_passed gauge: %w", err)
	}

	suiteTotal, err := meter.Int64Gauge(
		"regress_suite_total",
		metric.WithDescription("Fixtures executed in the last run"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create suite_total gauge: %w", err)
	}

	return &MetricsCollector{
		registry:        registry,
		provider:        provider,
		fixtureRuns:     fixtureRuns,
		fixtureDuration: fixtureDuration,
		suitePassed:     suitePassed,
		suiteTotal:      suiteTotal,
	}, nil
}

// Enabled reports whether the collector records anything.
func (m *MetricsCollector) Enabled() bool {
	return m != nil && m.fixtureRuns != nil
}

// RecordFixture records one finished fixture.
func (m *MetricsCollector) RecordFixture(ctx context.Context, name, state string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.fixtureRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("fixture", name),
		attribute.String("state", state),
	))
	m.fixtureDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("fixture", name),
	))
}

// RecordSummary records the aggregate counts of a finished run.
func (m *MetricsCollector) RecordSummary(ctx context.Context, passed, total int) {
	if !m.Enabled() {
		return
	}
	m.suitePassed.Record(ctx, int64(passed))
	m.suiteTotal.Record(ctx, int64(total))
}

// WriteTextfile writes the current metrics in Prometheus text format, for the
// node_exporter textfile collector or CI artifact upload.
func (m *MetricsCollector) WriteTextfile(path string) error {
	if !m.Enabled() {
		return fmt.Errorf("metrics collector is disabled")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown releases the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
