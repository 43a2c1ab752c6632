package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	EventID     uuid.UUID       `json:"event_id"` // idempotency key
	ActorUserID string          `json:"actor_user_id,omitempty"`
	Action      string          `json:"action"`
	TargetType  string          `json:"target_type,omitempty"`
	TargetID    string          `json:"target_id,omitempty"`
	Result      string          `json:"result"`
	ReasonCode  string          `json:"reason_code,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Writer is what services depend on.
type Writer interface {
	WriteEvent(ctx context.Context, evt AuditEvent) error
}

type Service struct {
	DB     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{DB: db, logger: logger.With("component", "audit")}
}

// Meta encodes metadata, dropping it on marshal failure.
func Meta(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// Nop discards events.
type Nop struct{}

func (Nop) WriteEvent(context.Context, AuditEvent) error { return nil }
