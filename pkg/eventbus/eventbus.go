package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/armysmp/storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published by the storefront
const (
	SubjectOrderCreated = "storefront.orders.created"
	SubjectFraudAlert   = "storefront.fraud.alerts"
	SubjectUserBlocked  = "storefront.fraud.user_blocked"
)

// Event is the envelope written to every subject
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an Event envelope
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Publisher publishes events to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Bus publishes events over NATS core
type Bus struct {
	conn *nats.Conn
}

// Connect dials NATS and keeps reconnecting in the background
func Connect(url, clientName string) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Bus{conn: conn}, nil
}

// Publish serializes event and publishes it on subject
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports the connection state for health checks
func (b *Bus) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains pending messages and closes the connection
func (b *Bus) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// NoopPublisher drops events; used when NATS is disabled
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(ctx context.Context, subject string, event *Event) error {
	logger.Debug("event bus disabled, dropping event",
		zap.String("subject", subject),
		zap.String("type", event.Type),
	)
	return nil
}
