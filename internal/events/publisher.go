package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const DefaultSubject = "hikconnect.sync.completed"

// SyncCompleted is emitted after an account's devices were committed.
type SyncCompleted struct {
	AccountID     string    `json:"account_id"`
	Total         int       `json:"total"`
	Fallback      bool      `json:"fallback"`
	DeviceSerials []string  `json:"device_serials"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Conn is satisfied by *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	conn       Conn
	subject    string
	maxRetries int
	logger     *slog.Logger
}

func NewNATSPublisher(conn Conn, subject string, maxRetries int, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
		logger:     logger.With("component", "events", "subject", subject),
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, evt SyncCompleted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, payload)
		if err == nil {
			p.logger.Debug("sync event published", "account_id", evt.AccountID, "total", evt.Total)
			return nil
		}
		if i == p.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i*100) * time.Millisecond):
		}
	}

	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}

// Nop drops events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, SyncCompleted) error { return nil }
