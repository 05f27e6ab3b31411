package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/stackvity/stack-polyglot/pkg/polyglot"
)

// writeMetricsSummary collects the run's instruments from reader and prints
// detections per method and the mean detection time.
func writeMetricsSummary(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}
	byMethod := make(map[string]int64)
	var count uint64
	var sum float64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case polyglot.MetricDetections:
				data, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					continue
				}
				for _, dp := range data.DataPoints {
					method, _ := dp.Attributes.Value("method")
					byMethod[method.AsString()] += dp.Value
				}
			case polyglot.MetricDetectionDuration:
				data, ok := m.Data.(metricdata.Histogram[float64])
				if !ok {
					continue
				}
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
			}
		}
	}

	methods := make([]string, 0, len(byMethod))
	for k := range byMethod {
		methods = append(methods, k)
	}
	sort.Strings(methods)

	fmt.Fprintln(w, "\nMetrics:")
	fmt.Fprintln(w, "  detections by method:")
	for _, k := range methods {
		fmt.Fprintf(w, "    %-12s %d\n", k, byMethod[k])
	}
	mean := time.Duration(0)
	if count > 0 {
		mean = time.Duration(sum / float64(count) * float64(time.Second))
	}
	_, err := fmt.Fprintf(w, "  detection duration: n=%d mean=%s\n", count, mean)
	return err
}
