package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"class-service/common/logger"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestDatabaseMetrics_RecordQueryAndTransaction(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	m, err := New(meter, logger.NewDiscard())
	require.NoError(t, err)

	ctx := context.Background()
	m.Database.RecordQuery(ctx, "insert", "classes", 3*time.Millisecond, nil)
	m.Database.RecordQuery(ctx, "insert", "class_schedule", time.Millisecond, errors.New("integer out of range"))
	m.Database.RecordTransaction(ctx, "create_class", nil)
	m.Database.RecordTransaction(ctx, "create_class", errors.New("boom"))

	got := collect(t, reader)

	require.Contains(t, got, "db.query.duration")
	hist := got["db.query.duration"].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)

	require.Contains(t, got, "db.query.errors")
	errs := got["db.query.errors"].Data.(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)

	require.Contains(t, got, "db.transactions")
	txs := got["db.transactions"].Data.(metricdata.Sum[int64])
	assert.Len(t, txs.DataPoints, 2)
}

func TestMessagingMetrics_RecordPublish(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	mm, err := NewMessagingMetrics(meter)
	require.NoError(t, err)

	mm.RecordPublish(context.Background(), "classes.created", time.Millisecond, nil)

	got := collect(t, reader)
	require.Contains(t, got, "messaging.messages.published")
	published := got["messaging.messages.published"].Data.(metricdata.Sum[int64])
	require.Len(t, published.DataPoints, 1)
	assert.Equal(t, int64(1), published.DataPoints[0].Value)
}

func TestNewMock_IgnoresRecords(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Database.RecordQuery(ctx, "select", "classes", time.Millisecond, errors.New("x"))
		m.Database.RecordTransaction(ctx, "create_class", nil)
		m.Messaging.RecordPublish(ctx, "classes.created", time.Millisecond, nil)
	})

	var nilDB *DatabaseMetrics
	assert.NotPanics(t, func() {
		nilDB.RecordQuery(ctx, "select", "classes", time.Millisecond, nil)
	})
}
