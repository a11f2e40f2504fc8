package alerts

import (
	"context"
	"time"
)

// HistoryEntry is one immutable audit record for an alert. Entries live
// in the document store, separate from the alert rows; the alert row is
// always the source of truth for current status.
type HistoryEntry struct {
	AlertID        uint                   `json:"alert_id" bson:"alert_id"`
	UserID         *uint                  `json:"user_id,omitempty" bson:"user_id,omitempty"` // nil means system-initiated
	AlertType      string                 `json:"alert_type" bson:"alert_type"`
	Action         string                 `json:"action" bson:"action"`
	PreviousStatus string                 `json:"previous_status,omitempty" bson:"previous_status,omitempty"`
	NewStatus      string                 `json:"new_status" bson:"new_status"`
	Comment        string                 `json:"comment,omitempty" bson:"comment,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Timestamp      time.Time              `json:"timestamp" bson:"timestamp"`
}

// HistoryLog is the append-only audit trail. Append failures are
// swallowed by the service (logged, never propagated): a failed audit
// write must not roll back the primary state change.
type HistoryLog interface {
	Append(ctx context.Context, entry HistoryEntry) error
	ByAlert(ctx context.Context, alertID uint, limit int64) ([]HistoryEntry, error)
}
