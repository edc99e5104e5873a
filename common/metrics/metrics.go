package metrics

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Metrics groups the infrastructure instruments shared by services.
type Metrics struct {
	Database  *DatabaseMetrics
	Messaging *MessagingMetrics
}

func New(meter metric.Meter, logger *slog.Logger) (*Metrics, error) {
	database, err := NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	messaging, err := NewMessagingMetrics(meter)
	if err != nil {
		return nil, err
	}

	logger.Info("metrics collectors initialized successfully")

	return &Metrics{
		Database:  database,
		Messaging: messaging,
	}, nil
}

// NewMock creates a no-op Metrics instance for testing.
// Every Record* call on it is ignored.
func NewMock() *Metrics {
	return &Metrics{
		Database:  &DatabaseMetrics{},
		Messaging: &MessagingMetrics{},
	}
}
