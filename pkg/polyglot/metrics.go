package polyglot

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names recorded by the directory engine.
const (
	MetricDetections        = "polyglot_detections_total"
	MetricDetectionDuration = "polyglot_detection_duration_seconds"
	meterName               = "github.com/stackvity/stack-polyglot/pkg/polyglot"
)

type engineMetrics struct {
	detections metric.Int64Counter
	duration   metric.Float64Histogram
}

// newEngineMetrics registers the engine instruments. A failed instrument is
// logged and left nil; recording on it is then skipped.
func newEngineMetrics(mp metric.MeterProvider, logger *slog.Logger) *engineMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &engineMetrics{}
	var err error
	m.detections, err = meter.Int64Counter(MetricDetections,
		metric.WithDescription("Files detected, by language and method"),
	)
	if err != nil {
		logger.Warn("Failed to create detection counter", slog.String("error", err.Error()))
	}
	m.duration, err = meter.Float64Histogram(MetricDetectionDuration,
		metric.WithDescription("Per-file detection duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("Failed to create duration histogram", slog.String("error", err.Error()))
	}
	return m
}

func (m *engineMetrics) record(ctx context.Context, info FileInfo, elapsed time.Duration) {
	if m == nil {
		return
	}
	if m.detections != nil {
		m.detections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("language", info.Language),
			attribute.String("method", string(info.Method)),
		))
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("method", string(info.Method)),
		))
	}
}
