package download

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricsReporter records download outcomes on the globally-registered
// OpenTelemetry meter provider. With no provider registered the instruments
// are noops, so it is safe to install unconditionally.
type MetricsReporter struct {
	completed metric.Int64Counter
	failed    metric.Int64Counter
	bytes     metric.Int64Histogram
}

// NewMetricsReporter creates the reporter's instruments.
func NewMetricsReporter() (*MetricsReporter, error) {
	meter := otel.Meter("github.com/tilsley/ghgrab/pkg/download")

	completed, err := meter.Int64Counter("ghgrab.files.completed",
		metric.WithDescription("Files downloaded and written successfully"))
	if err != nil {
		return nil, fmt.Errorf("create completed counter: %w", err)
	}
	failed, err := meter.Int64Counter("ghgrab.files.failed",
		metric.WithDescription("Files whose fetch or write failed"))
	if err != nil {
		return nil, fmt.Errorf("create failed counter: %w", err)
	}
	bytes, err := meter.Int64Histogram("ghgrab.file.bytes",
		metric.WithDescription("Decoded size of downloaded files"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("create bytes histogram: %w", err)
	}

	return &MetricsReporter{completed: completed, failed: failed, bytes: bytes}, nil
}

func (*MetricsReporter) Started(string) {}

func (r *MetricsReporter) Completed(_ string, size int64) {
	r.completed.Add(context.Background(), 1)
	r.bytes.Record(context.Background(), size)
}

func (r *MetricsReporter) Failed(string, error) {
	r.failed.Add(context.Background(), 1)
}
