package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/models"
)

// DedupWindow is how long a (car, alert type) pair suppresses repeat
// alerts after one is created.
const DedupWindow = 5 * time.Minute

const historyFetchLimit = 200

// CarDirectory answers vehicle-existence checks.
type CarDirectory interface {
	CarExists(ctx context.Context, id uint) (bool, error)
}

// UserDirectory answers user-existence checks.
type UserDirectory interface {
	UserExists(ctx context.Context, id uint) (bool, error)
}

// AlertStore is the relational source of truth for alert rows.
type AlertStore interface {
	Insert(ctx context.Context, alert *models.Alert) error
	ByID(ctx context.Context, id uint) (*models.Alert, error)
	LatestSince(ctx context.Context, carID uint, alertType string, since time.Time) (*models.Alert, error)
	UpdateConfidence(ctx context.Context, id uint, confidence float64) error
	Update(ctx context.Context, alert *models.Alert) error
	List(ctx context.Context, filter Filter) ([]models.Alert, int64, error)
	Statistics(ctx context.Context, ownerID uint, since time.Time) (*Statistics, error)
	Delete(ctx context.Context, alert *models.Alert) error
}

// Notifier is told about alerts worth pushing out. Implementations must
// not block the request path.
type Notifier interface {
	AlertCreated(alert *models.Alert)
}

// Filter narrows and pages alert queries.
type Filter struct {
	OwnerID    uint
	CarID      uint
	Types      []string
	Severities []string
	Statuses   []string
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
	SortBy     string
	SortDir    string
}

// Page describes one page of a list result.
type Page struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// AlertList is a filtered, paginated query result.
type AlertList struct {
	Alerts     []models.Alert `json:"alerts"`
	Pagination Page           `json:"pagination"`
}

// Statistics summarizes a user's alerts over a time window.
type Statistics struct {
	Total                 int64            `json:"total"`
	BySeverity            map[string]int64 `json:"by_severity"`
	ByStatus              map[string]int64 `json:"by_status"`
	ByType                map[string]int64 `json:"by_type"`
	AvgAcknowledgeMinutes float64          `json:"avg_acknowledge_minutes"`
	AvgResolveMinutes     float64          `json:"avg_resolve_minutes"`
}

// CreateAlertInput carries one classification submission for a vehicle.
type CreateAlertInput struct {
	CarID         uint
	Results       map[string]float64
	Description   string
	Metadata      map[string]interface{}
	SourceEventID string
}

// Service coordinates classification, deduplication, persistence and
// audit logging for the alert lifecycle. All store handles are injected
// so tests can substitute doubles.
//
// The alert row and its history document are written to two different
// stores with no cross-store transaction. The alert write is
// authoritative; history is best effort. Creation is serialized per
// (carID, alertType) within this process, which is the extent of the
// dedup guarantee in a multi-instance deployment.
type Service struct {
	cars       CarDirectory
	users      UserDirectory
	store      AlertStore
	thresholds ThresholdSource
	history    HistoryLog
	notifier   Notifier
	creates    *keyedMutex
}

func NewService(cars CarDirectory, users UserDirectory, store AlertStore, thresholds ThresholdSource, history HistoryLog) *Service {
	return &Service{
		cars:       cars,
		users:      users,
		store:      store,
		thresholds: thresholds,
		history:    history,
		creates:    newKeyedMutex(),
	}
}

// SetNotifier attaches an optional push notifier for created alerts.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateAlert classifies the submitted results against the registered
// thresholds and either creates an alert, folds the attempt into a
// recent duplicate, or reports that nothing qualified. Only the created
// case writes a history entry.
func (s *Service) CreateAlert(ctx context.Context, input CreateAlertInput) (CreateOutcome, error) {
	for alertType, confidence := range input.Results {
		if confidence < 0 || confidence > 1 {
			return CreateOutcome{}, fmt.Errorf("%w: %s scored %v", ErrInvalidConfidence, alertType, confidence)
		}
	}

	exists, err := s.cars.CarExists(ctx, input.CarID)

	if err != nil {
		return CreateOutcome{}, fmt.Errorf("checking car %d: %w", input.CarID, err)
	}

	if !exists {
		return CreateOutcome{}, ErrCarNotFound
	}

	selected, err := SelectCandidate(ctx, s.thresholds, input.Results)

	if err != nil {
		return CreateOutcome{}, fmt.Errorf("selecting candidate: %w", err)
	}

	if selected == nil {
		return CreateOutcome{Code: OutcomeNoCandidate}, nil
	}

	unlock := s.creates.lock(input.CarID, selected.AlertType)
	defer unlock()

	recent, err := s.store.LatestSince(ctx, input.CarID, selected.AlertType, time.Now().Add(-DedupWindow))

	if err != nil {
		return CreateOutcome{}, fmt.Errorf("checking recent duplicates: %w", err)
	}

	if recent != nil {
		// Suppressed attempts are not audited; only the confidence
		// fold touches the existing row.
		if selected.Confidence > recent.ConfidenceScore {
			if err := s.store.UpdateConfidence(ctx, recent.ID, selected.Confidence); err != nil {
				return CreateOutcome{}, fmt.Errorf("updating duplicate confidence: %w", err)
			}

			recent.ConfidenceScore = selected.Confidence
		}

		return CreateOutcome{Code: OutcomeSuppressed, Alert: recent}, nil
	}

	metadata := map[string]interface{}{
		"candidates": input.Results,
		"selected":   selected,
	}

	if len(input.Metadata) > 0 {
		metadata["caller"] = input.Metadata
	}

	if input.SourceEventID != "" {
		metadata["source_event_id"] = input.SourceEventID
	}

	classificationContext, err := json.Marshal(metadata)

	if err != nil {
		return CreateOutcome{}, fmt.Errorf("encoding classification context: %w", err)
	}

	alert := &models.Alert{
		CarID:           input.CarID,
		AlertType:       selected.AlertType,
		Severity:        ResolveSeverity(selected.AlertType, selected.Confidence),
		ConfidenceScore: selected.Confidence,
		Status:          StatusNew,
		Description:     input.Description,
		Context:         classificationContext,
	}

	if err := s.store.Insert(ctx, alert); err != nil {
		return CreateOutcome{}, fmt.Errorf("creating alert: %w", err)
	}

	s.appendHistory(ctx, HistoryEntry{
		AlertID:   alert.ID,
		AlertType: alert.AlertType,
		Action:    ActionCreated,
		NewStatus: StatusNew,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})

	if s.notifier != nil && (alert.Severity == SeverityHigh || alert.Severity == SeverityCritical) {
		s.notifier.AlertCreated(alert)
	}

	reloaded, err := s.store.ByID(ctx, alert.ID)

	if err != nil {
		// The row is committed; return the in-memory copy rather than
		// failing the whole create over a reload.
		log.Printf("Failed to reload alert %d after create: %v", alert.ID, err)
		return CreateOutcome{Code: OutcomeCreated, Alert: alert}, nil
	}

	return CreateOutcome{Code: OutcomeCreated, Alert: reloaded}, nil
}

// UpdateStatus applies a lifecycle transition and records it in the
// history log. Acknowledging requires an existing user. Resolving
// reuses the acknowledge bookkeeping, so a resolve with a user attached
// stamps acknowledged_by/at even when the alert was never acknowledged;
// kept for compatibility with the legacy lifecycle semantics.
func (s *Service) UpdateStatus(ctx context.Context, alertID uint, userID *uint, status, comment string) (*models.Alert, error) {
	normalized, err := NormalizeStatus(status)

	if err != nil {
		return nil, err
	}

	if normalized == StatusAcknowledged {
		if userID == nil {
			return nil, ErrMissingAcknowledger
		}

		exists, err := s.users.UserExists(ctx, *userID)

		if err != nil {
			return nil, fmt.Errorf("checking user %d: %w", *userID, err)
		}

		if !exists {
			return nil, ErrUserNotFound
		}
	}

	alert, err := s.store.ByID(ctx, alertID)

	if err != nil {
		return nil, err
	}

	previous := alert.Status

	if normalized == StatusAcknowledged || normalized == StatusResolved {
		if userID != nil {
			now := time.Now()
			alert.AcknowledgedBy = userID
			alert.AcknowledgedAt = &now
		}
	}

	alert.Status = normalized

	if err := s.store.Update(ctx, alert); err != nil {
		return nil, fmt.Errorf("updating alert %d: %w", alertID, err)
	}

	s.appendHistory(ctx, HistoryEntry{
		AlertID:        alert.ID,
		UserID:         userID,
		AlertType:      alert.AlertType,
		Action:         ActionForStatus(normalized),
		PreviousStatus: previous,
		NewStatus:      normalized,
		Comment:        comment,
		Timestamp:      time.Now(),
	})

	return s.store.ByID(ctx, alertID)
}

// GetAlertByID returns one alert with its car association loaded.
func (s *Service) GetAlertByID(ctx context.Context, alertID uint) (*models.Alert, error) {
	return s.store.ByID(ctx, alertID)
}

// GetAlerts returns a filtered, sorted page of alerts.
func (s *Service) GetAlerts(ctx context.Context, filter Filter) (*AlertList, error) {
	normalizeFilter(&filter)

	alerts, total, err := s.store.List(ctx, filter)

	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	totalPages := int((total + int64(filter.PerPage) - 1) / int64(filter.PerPage))

	return &AlertList{
		Alerts: alerts,
		Pagination: Page{
			Page:       filter.Page,
			PerPage:    filter.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// GetAlertsByTimeRange is GetAlerts bounded to [from, to].
func (s *Service) GetAlertsByTimeRange(ctx context.Context, from, to time.Time, filter Filter) (*AlertList, error) {
	filter.From = &from
	filter.To = &to

	return s.GetAlerts(ctx, filter)
}

// GetAlertStatistics aggregates a user's alerts (transitively through
// owned cars) over a relative window: "7d", "30d", "90d" or "1y".
// Unknown or empty ranges fall back to 7d.
func (s *Service) GetAlertStatistics(ctx context.Context, userID uint, timeRange string) (*Statistics, error) {
	exists, err := s.users.UserExists(ctx, userID)

	if err != nil {
		return nil, fmt.Errorf("checking user %d: %w", userID, err)
	}

	if !exists {
		return nil, ErrUserNotFound
	}

	return s.store.Statistics(ctx, userID, time.Now().Add(-windowDuration(timeRange)))
}

// GetAlertHistory returns the audit trail for an alert, newest first.
func (s *Service) GetAlertHistory(ctx context.Context, alertID uint) ([]HistoryEntry, error) {
	if _, err := s.store.ByID(ctx, alertID); err != nil {
		return nil, err
	}

	return s.history.ByAlert(ctx, alertID, historyFetchLimit)
}

// DeleteAlert removes an alert and its dependent notification rows.
// Administrative operation; normal lifecycle never deletes.
func (s *Service) DeleteAlert(ctx context.Context, alertID uint, userID *uint) error {
	alert, err := s.store.ByID(ctx, alertID)

	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, alert); err != nil {
		return fmt.Errorf("deleting alert %d: %w", alertID, err)
	}

	s.appendHistory(ctx, HistoryEntry{
		AlertID:        alert.ID,
		UserID:         userID,
		AlertType:      alert.AlertType,
		Action:         ActionDeleted,
		PreviousStatus: alert.Status,
		NewStatus:      alert.Status,
		Timestamp:      time.Now(),
	})

	return nil
}

// appendHistory writes an audit entry and swallows failures: the
// primary state change already committed and must not be rolled back by
// a broken audit trail.
func (s *Service) appendHistory(ctx context.Context, entry HistoryEntry) {
	if err := s.history.Append(ctx, entry); err != nil {
		log.Printf("Failed to append history for alert %d (%s): %v", entry.AlertID, entry.Action, err)
	}
}

func normalizeFilter(filter *Filter) {
	if filter.Page < 1 {
		filter.Page = 1
	}

	if filter.PerPage < 1 {
		filter.PerPage = 20
	}

	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	switch filter.SortBy {
	case "created_at", "severity", "confidence_score", "status", "alert_type":
	default:
		filter.SortBy = "created_at"
	}

	if filter.SortDir != "asc" {
		filter.SortDir = "desc"
	}

	for i, t := range filter.Types {
		filter.Types[i] = CanonicalType(t)
	}
}

func windowDuration(timeRange string) time.Duration {
	switch timeRange {
	case "30d":
		return 30 * 24 * time.Hour
	case "90d":
		return 90 * 24 * time.Hour
	case "1y":
		return 365 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}
