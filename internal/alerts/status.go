package alerts

import "strings"

// Alert statuses.
const (
	StatusNew          = "new"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
	StatusDismissed    = "dismissed"
	StatusEscalated    = "escalated"
	StatusFalseAlert   = "false_alert"
)

// Severity levels, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Audit actions recorded in the history log.
const (
	ActionCreated      = "created"
	ActionAcknowledged = "acknowledged"
	ActionInProgress   = "in_progress"
	ActionResolved     = "resolved"
	ActionDismissed    = "dismissed"
	ActionEscalated    = "escalated"
	ActionMarkedFalse  = "marked_false"
	ActionDeleted      = "deleted"
)

// statusActions maps every status to its audit action. The mapping is
// total: an unmapped status is a programming error, caught by
// NormalizeStatus before any transition is applied.
var statusActions = map[string]string{
	StatusNew:          ActionCreated,
	StatusAcknowledged: ActionAcknowledged,
	StatusInProgress:   ActionInProgress,
	StatusResolved:     ActionResolved,
	StatusDismissed:    ActionDismissed,
	StatusEscalated:    ActionEscalated,
	StatusFalseAlert:   ActionMarkedFalse,
}

// NormalizeStatus lowercases and trims a caller-supplied status and
// validates it against the known status set.
func NormalizeStatus(status string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))

	if _, ok := statusActions[normalized]; !ok {
		return "", ErrInvalidStatus
	}

	return normalized, nil
}

// ActionForStatus returns the audit action recorded when an alert
// transitions into the given (already normalized) status.
func ActionForStatus(status string) string {
	return statusActions[status]
}

// CanonicalType returns the canonical form of an alert type name:
// lowercase, surrounding whitespace removed. Thresholds, types and
// alerts are all keyed by this form.
func CanonicalType(alertType string) string {
	return strings.ToLower(strings.TrimSpace(alertType))
}
