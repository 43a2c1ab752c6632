package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WriteEvent appends evt to audit_logs. When the insert fails the event is
// written to the structured log instead so it is not lost, and the error is
// returned for the caller to ignore or surface.
func (s *Service) WriteEvent(ctx context.Context, evt AuditEvent) error {
	if evt.EventID == uuid.Nil {
		evt.EventID = uuid.New()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (
			event_id, actor_user_id, action, target_type, target_id,
			result, reason_code, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`

	var meta any
	if len(evt.Metadata) > 0 {
		meta = []byte(evt.Metadata)
	}

	_, err := s.DB.ExecContext(ctx, query,
		evt.EventID, evt.ActorUserID, evt.Action, evt.TargetType, evt.TargetID,
		evt.Result, evt.ReasonCode, evt.RequestID, meta, evt.CreatedAt,
	)
	if err != nil {
		s.logger.Error("audit write failed, event logged only",
			"error", err,
			"event_id", evt.EventID.String(),
			"action", evt.Action,
			"target_id", evt.TargetID,
			"result", evt.Result,
		)
		return fmt.Errorf("audit: write event %s: %w", evt.EventID, err)
	}
	return nil
}
