package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce           sync.Once
	metricsInitErr        error
	stageOutcomeCounter   metric.Int64Counter
	stageLatencyHistogram metric.Float64Histogram
)

// StageMetrics captures the fields needed to record gateway stage telemetry.
type StageMetrics struct {
	Stage    string
	Status   int
	Duration time.Duration
}

// RecordStage emits the counter and histogram describing a request's terminal
// lifecycle stage.
func RecordStage(ctx context.Context, metrics StageMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("gateway.stage", metrics.Stage),
		attribute.Int("gateway.status", metrics.Status),
	}

	stageOutcomeCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		stageLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("secgate.gateway")

		stageOutcomeCounter, metricsInitErr = meter.Int64Counter(
			"secgate.requests_total",
			metric.WithDescription("Gateway requests partitioned by terminal stage and status"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		stageLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"secgate.request.duration",
			metric.WithDescription("Gateway request processing latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
