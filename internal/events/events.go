// Package events publishes domain events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event subjects.
const (
	SubjectInvoiceCreated      = "bizznex.invoice.created"
	SubjectInvoicePaid         = "bizznex.invoice.paid"
	SubjectPaymentRecorded     = "bizznex.invoice.payment_recorded"
	SubjectSubscriptionChanged = "bizznex.subscription.changed"
)

// Publisher publishes events. Publish errors are for the caller to log;
// events are never on the critical path of a request.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Config holds NATS connection settings.
type Config struct {
	URL  string
	Name string
}

// NATSPublisher publishes JSON envelopes to NATS core subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to cfg.URL.
func NewNATSPublisher(cfg Config, logger *slog.Logger) (*NATSPublisher, error) {
	name := cfg.Name
	if name == "" {
		name = "bizznex"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(Envelope{
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NoopPublisher discards events. Used when NATS is not configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, payload any) error { return nil }
func (NoopPublisher) Close() error                                                  { return nil }

// New returns a NATS publisher when cfg.URL is set and a NoopPublisher
// otherwise.
func New(cfg Config, logger *slog.Logger) (Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS not configured, events disabled")
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}
