package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	classesCreated  metric.Int64Counter
	createFailures  metric.Int64Counter
	listingsServed  metric.Int64Counter
	listingRowsSize metric.Int64Histogram
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.classesCreated, err = meter.Int64Counter(
		"class_service.classes.created",
		metric.WithDescription("Total number of classes created"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, err
	}

	m.createFailures, err = meter.Int64Counter(
		"class_service.classes.create_failures",
		metric.WithDescription("Total number of rejected or rolled back class creations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.listingsServed, err = meter.Int64Counter(
		"class_service.classes.list_viewed",
		metric.WithDescription("Total number of times the class list was viewed"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	m.listingRowsSize, err = meter.Int64Histogram(
		"class_service.classes.list_rows",
		metric.WithDescription("Rows returned per class listing"),
		metric.WithUnit("{row}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 20),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordClassCreated(ctx context.Context, subject string) {
	if m != nil && m.classesCreated != nil {
		m.classesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
	}
}

func (m *Metrics) RecordClassCreateFailed(ctx context.Context) {
	if m != nil && m.createFailures != nil {
		m.createFailures.Add(ctx, 1)
	}
}

func (m *Metrics) RecordClassesListed(ctx context.Context, rows int) {
	if m != nil && m.listingsServed != nil {
		m.listingsServed.Add(ctx, 1)
		m.listingRowsSize.Record(ctx, int64(rows))
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
