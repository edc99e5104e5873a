package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"class-service/common/metrics"

	"github.com/nats-io/nats.go"
)

// Producer publishes JSON events on a single NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.MessagingMetrics
}

func NewProducer(url string, subject string, logger *slog.Logger, m *metrics.MessagingMetrics) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("class-service"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, event interface{}) error {
	start := time.Now()
	err := p.publish(event)
	p.metrics.RecordPublish(ctx, p.subject, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to NATS", "subject", p.subject, "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to NATS", "subject", p.subject)
	return nil
}

func (p *Producer) publish(event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.conn.Publish(p.subject, payload)
}

// Close flushes pending messages and closes the connection.
func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
