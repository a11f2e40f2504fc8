package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/models"
)

type fakeDirectory struct {
	cars  map[uint]bool
	users map[uint]bool
}

func (f *fakeDirectory) CarExists(_ context.Context, id uint) (bool, error) {
	return f.cars[id], nil
}

func (f *fakeDirectory) UserExists(_ context.Context, id uint) (bool, error) {
	return f.users[id], nil
}

type fakeAlertStore struct {
	rows              map[uint]*models.Alert
	nextID            uint
	recent            *models.Alert
	lastSince         time.Time
	confidenceUpdates []float64
	updates           int
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{rows: make(map[uint]*models.Alert), nextID: 1}
}

func (s *fakeAlertStore) Insert(_ context.Context, alert *models.Alert) error {
	alert.ID = s.nextID
	s.nextID++
	copied := *alert
	s.rows[alert.ID] = &copied
	return nil
}

func (s *fakeAlertStore) ByID(_ context.Context, id uint) (*models.Alert, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *fakeAlertStore) LatestSince(_ context.Context, carID uint, alertType string, since time.Time) (*models.Alert, error) {
	s.lastSince = since
	if s.recent != nil && s.recent.CarID == carID && s.recent.AlertType == alertType && !s.recent.CreatedAt.Before(since) {
		copied := *s.recent
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeAlertStore) UpdateConfidence(_ context.Context, id uint, confidence float64) error {
	s.confidenceUpdates = append(s.confidenceUpdates, confidence)
	if row, ok := s.rows[id]; ok {
		row.ConfidenceScore = confidence
	}
	if s.recent != nil && s.recent.ID == id {
		s.recent.ConfidenceScore = confidence
	}
	return nil
}

func (s *fakeAlertStore) Update(_ context.Context, alert *models.Alert) error {
	s.updates++
	copied := *alert
	s.rows[alert.ID] = &copied
	return nil
}

func (s *fakeAlertStore) List(context.Context, Filter) ([]models.Alert, int64, error) {
	var rows []models.Alert
	for _, row := range s.rows {
		rows = append(rows, *row)
	}
	return rows, int64(len(rows)), nil
}

func (s *fakeAlertStore) Statistics(context.Context, uint, time.Time) (*Statistics, error) {
	return &Statistics{Total: int64(len(s.rows))}, nil
}

func (s *fakeAlertStore) Delete(_ context.Context, alert *models.Alert) error {
	delete(s.rows, alert.ID)
	return nil
}

type fakeHistory struct {
	entries    []HistoryEntry
	failAppend bool
}

func (h *fakeHistory) Append(_ context.Context, entry HistoryEntry) error {
	if h.failAppend {
		return errors.New("history store down")
	}
	h.entries = append(h.entries, entry)
	return nil
}

func (h *fakeHistory) ByAlert(_ context.Context, alertID uint, _ int64) ([]HistoryEntry, error) {
	var matched []HistoryEntry
	for _, entry := range h.entries {
		if entry.AlertID == alertID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

type testEnv struct {
	service *Service
	store   *fakeAlertStore
	history *fakeHistory
}

func newTestEnv(thresholds fakeThresholds) *testEnv {
	directory := &fakeDirectory{
		cars:  map[uint]bool{1: true},
		users: map[uint]bool{10: true},
	}
	store := newFakeAlertStore()
	hist := &fakeHistory{}

	return &testEnv{
		service: NewService(directory, directory, store, thresholds, hist),
		store:   store,
		history: hist,
	}
}

func TestCreateAlert_CarNotFound(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	_, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   99,
		Results: map[string]float64{"engine_warning": 0.9},
	})

	if !errors.Is(err, ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}

	if len(env.store.rows) != 0 || len(env.history.entries) != 0 {
		t.Fatal("no rows or history entries should exist after a failed create")
	}
}

func TestCreateAlert_RejectsOutOfRangeConfidence(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	for _, confidence := range []float64{-0.1, 1.2} {
		_, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
			CarID:   1,
			Results: map[string]float64{"engine_warning": confidence},
		})

		if !errors.Is(err, ErrInvalidConfidence) {
			t.Fatalf("confidence %v: expected ErrInvalidConfidence, got %v", confidence, err)
		}
	}

	if len(env.store.rows) != 0 {
		t.Fatal("no rows should exist after rejected submissions")
	}
}

func TestCreateAlert_NoQualifyingCandidate(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.3, "unregistered": 0.99},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeNoCandidate {
		t.Fatalf("expected OutcomeNoCandidate, got %v", outcome.Code)
	}

	if outcome.Alert != nil {
		t.Fatal("no alert should accompany a no-candidate outcome")
	}

	if len(env.store.rows) != 0 || len(env.history.entries) != 0 {
		t.Fatal("a classification miss must have no side effects")
	}
}

func TestCreateAlert_Created(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6, "battery_low": 0.5})

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:         1,
		Results:       map[string]float64{"engine_warning": 0.82, "battery_low": 0.40},
		SourceEventID: "evt-123",
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeCreated {
		t.Fatalf("expected OutcomeCreated, got %v", outcome.Code)
	}

	alert := outcome.Alert

	if alert.Status != StatusNew {
		t.Fatalf("expected status new, got %s", alert.Status)
	}

	if alert.AlertType != "engine_warning" || alert.ConfidenceScore != 0.82 {
		t.Fatalf("unexpected selection: %s @ %v", alert.AlertType, alert.ConfidenceScore)
	}

	if alert.Severity != ResolveSeverity("engine_warning", 0.82) {
		t.Fatalf("severity %s disagrees with resolver", alert.Severity)
	}

	if len(env.history.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(env.history.entries))
	}

	entry := env.history.entries[0]

	if entry.Action != ActionCreated || entry.NewStatus != StatusNew || entry.AlertID != alert.ID {
		t.Fatalf("unexpected history entry: %+v", entry)
	}

	if entry.Metadata["source_event_id"] != "evt-123" {
		t.Fatalf("expected source event in metadata, got %+v", entry.Metadata)
	}
}

func TestCreateAlert_SuppressedFoldsHigherConfidence(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	existing := &models.Alert{CarID: 1, AlertType: "engine_warning", ConfidenceScore: 0.7, Status: StatusNew}
	existing.ID = 42
	existing.CreatedAt = time.Now().Add(-time.Minute)
	env.store.rows[42] = existing
	env.store.recent = existing

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.9},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeSuppressed {
		t.Fatalf("expected OutcomeSuppressed, got %v", outcome.Code)
	}

	if outcome.Alert.ID != 42 {
		t.Fatalf("expected the absorbing alert, got %d", outcome.Alert.ID)
	}

	if outcome.Alert.ConfidenceScore != 0.9 {
		t.Fatalf("expected folded confidence 0.9, got %v", outcome.Alert.ConfidenceScore)
	}

	if len(env.store.confidenceUpdates) != 1 || env.store.confidenceUpdates[0] != 0.9 {
		t.Fatalf("expected one confidence update, got %v", env.store.confidenceUpdates)
	}

	// Suppressed attempts are not audited.
	if len(env.history.entries) != 0 {
		t.Fatalf("suppressed create must not write history, got %d entries", len(env.history.entries))
	}
}

func TestCreateAlert_SuppressedKeepsHigherExistingConfidence(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	existing := &models.Alert{CarID: 1, AlertType: "engine_warning", ConfidenceScore: 0.95, Status: StatusNew}
	existing.ID = 42
	existing.CreatedAt = time.Now().Add(-time.Minute)
	env.store.rows[42] = existing
	env.store.recent = existing

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.8},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeSuppressed {
		t.Fatalf("expected OutcomeSuppressed, got %v", outcome.Code)
	}

	if len(env.store.confidenceUpdates) != 0 {
		t.Fatalf("lower confidence must not overwrite, got updates %v", env.store.confidenceUpdates)
	}

	if outcome.Alert.ConfidenceScore != 0.95 {
		t.Fatalf("existing confidence changed: %v", outcome.Alert.ConfidenceScore)
	}
}

func TestCreateAlert_DedupQueriesFiveMinuteWindow(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	existing := &models.Alert{CarID: 1, AlertType: "engine_warning", ConfidenceScore: 0.7, Status: StatusNew}
	existing.ID = 42
	existing.CreatedAt = time.Now().Add(-2 * time.Minute)
	env.store.rows[42] = existing
	env.store.recent = existing

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.7},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeSuppressed {
		t.Fatalf("a 2-minute-old duplicate must suppress, got %v", outcome.Code)
	}

	if len(env.store.rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(env.store.rows))
	}

	wantSince := time.Now().Add(-DedupWindow)
	drift := env.store.lastSince.Sub(wantSince)

	if drift < -time.Second || drift > time.Second {
		t.Fatalf("duplicate lookup bound %v is not 5 minutes before now", env.store.lastSince)
	}
}

func TestCreateAlert_StaleDuplicateCreatesNewRow(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})

	existing := &models.Alert{CarID: 1, AlertType: "engine_warning", ConfidenceScore: 0.7, Status: StatusNew}
	existing.ID = 42
	existing.CreatedAt = time.Now().Add(-6 * time.Minute)
	env.store.rows[42] = existing
	env.store.recent = existing
	env.store.nextID = 43

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.9},
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outcome.Code != OutcomeCreated {
		t.Fatalf("a duplicate outside the window must not suppress, got %v", outcome.Code)
	}

	if outcome.Alert.ID == 42 {
		t.Fatal("expected a fresh row, got the stale one")
	}

	if len(env.store.rows) != 2 {
		t.Fatalf("expected two distinct rows, got %d", len(env.store.rows))
	}

	if len(env.store.confidenceUpdates) != 0 {
		t.Fatalf("stale duplicate must not absorb confidence, got %v", env.store.confidenceUpdates)
	}
}

func TestCreateAlert_HistoryFailureDoesNotFailCreate(t *testing.T) {
	env := newTestEnv(fakeThresholds{"engine_warning": 0.6})
	env.history.failAppend = true

	outcome, err := env.service.CreateAlert(context.Background(), CreateAlertInput{
		CarID:   1,
		Results: map[string]float64{"engine_warning": 0.9},
	})

	if err != nil {
		t.Fatalf("create must survive a history failure, got %v", err)
	}

	if outcome.Code != OutcomeCreated {
		t.Fatalf("expected OutcomeCreated, got %v", outcome.Code)
	}

	if len(env.store.rows) != 1 {
		t.Fatal("alert row must persist even when the audit write fails")
	}
}

func seedAlert(env *testEnv, status string) *models.Alert {
	alert := &models.Alert{CarID: 1, AlertType: "engine_warning", Severity: SeverityHigh, ConfidenceScore: 0.8, Status: status}
	alert.ID = env.store.nextID
	env.store.nextID++
	env.store.rows[alert.ID] = alert
	return alert
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusNew)

	userID := uint(10)

	_, err := env.service.UpdateStatus(context.Background(), alert.ID, &userID, "garbage", "")

	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	if env.store.rows[alert.ID].Status != StatusNew {
		t.Fatal("alert status must be unchanged after a rejected transition")
	}

	if len(env.history.entries) != 0 {
		t.Fatal("rejected transition must not write history")
	}
}

func TestUpdateStatus_AcknowledgeRequiresUser(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusNew)

	_, err := env.service.UpdateStatus(context.Background(), alert.ID, nil, StatusAcknowledged, "")

	if !errors.Is(err, ErrMissingAcknowledger) {
		t.Fatalf("expected ErrMissingAcknowledger, got %v", err)
	}

	if env.store.updates != 0 || len(env.history.entries) != 0 {
		t.Fatal("nothing may be written when the acknowledger is missing")
	}
}

func TestUpdateStatus_AcknowledgeUnknownUser(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusNew)

	userID := uint(999)

	_, err := env.service.UpdateStatus(context.Background(), alert.ID, &userID, StatusAcknowledged, "")

	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateStatus_AlertNotFound(t *testing.T) {
	env := newTestEnv(fakeThresholds{})

	userID := uint(10)

	_, err := env.service.UpdateStatus(context.Background(), 777, &userID, StatusDismissed, "")

	if !errors.Is(err, ErrAlertNotFound) {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestUpdateStatus_AcknowledgeStampsBookkeeping(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusNew)

	userID := uint(10)

	updated, err := env.service.UpdateStatus(context.Background(), alert.ID, &userID, "ACKNOWLEDGED", "on it")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != StatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", updated.Status)
	}

	if updated.AcknowledgedBy == nil || *updated.AcknowledgedBy != 10 || updated.AcknowledgedAt == nil {
		t.Fatal("acknowledge must stamp acknowledged_by and acknowledged_at")
	}

	if len(env.history.entries) != 1 {
		t.Fatalf("expected exactly 1 history entry, got %d", len(env.history.entries))
	}

	entry := env.history.entries[0]

	if entry.PreviousStatus != StatusNew || entry.NewStatus != StatusAcknowledged {
		t.Fatalf("unexpected transition record: %+v", entry)
	}

	if entry.Action != ActionAcknowledged || entry.Comment != "on it" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

// Resolving reuses the acknowledge bookkeeping even when the alert was
// never acknowledged; kept for compatibility with the legacy lifecycle
// semantics.
func TestUpdateStatus_ResolveStampsAcknowledger(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusNew)

	userID := uint(10)

	updated, err := env.service.UpdateStatus(context.Background(), alert.ID, &userID, StatusResolved, "fixed")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.AcknowledgedBy == nil || *updated.AcknowledgedBy != 10 {
		t.Fatal("resolve must stamp the acknowledger")
	}

	if env.history.entries[0].Action != ActionResolved {
		t.Fatalf("expected resolved action, got %s", env.history.entries[0].Action)
	}
}

func TestUpdateStatus_GenericTransitionLeavesBookkeeping(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusAcknowledged)

	userID := uint(10)

	updated, err := env.service.UpdateStatus(context.Background(), alert.ID, &userID, StatusEscalated, "")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != StatusEscalated {
		t.Fatalf("expected escalated, got %s", updated.Status)
	}

	if updated.AcknowledgedBy != nil {
		t.Fatal("generic transition must not touch acknowledge bookkeeping")
	}

	entry := env.history.entries[0]

	if entry.PreviousStatus != StatusAcknowledged || entry.Action != ActionEscalated {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestGetAlertHistory_UnknownAlert(t *testing.T) {
	env := newTestEnv(fakeThresholds{})

	_, err := env.service.GetAlertHistory(context.Background(), 123)

	if !errors.Is(err, ErrAlertNotFound) {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestGetAlertStatistics_UnknownUser(t *testing.T) {
	env := newTestEnv(fakeThresholds{})

	_, err := env.service.GetAlertStatistics(context.Background(), 999, "7d")

	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeleteAlert_WritesAuditEntry(t *testing.T) {
	env := newTestEnv(fakeThresholds{})
	alert := seedAlert(env, StatusResolved)

	userID := uint(10)

	if err := env.service.DeleteAlert(context.Background(), alert.ID, &userID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := env.store.rows[alert.ID]; ok {
		t.Fatal("alert row must be gone after delete")
	}

	if len(env.history.entries) != 1 || env.history.entries[0].Action != ActionDeleted {
		t.Fatalf("expected a deleted audit entry, got %+v", env.history.entries)
	}
}

func TestWindowDuration(t *testing.T) {
	tests := []struct {
		timeRange string
		want      time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"30d", 30 * 24 * time.Hour},
		{"90d", 90 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
		{"", 7 * 24 * time.Hour},
		{"nonsense", 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		if got := windowDuration(tt.timeRange); got != tt.want {
			t.Fatalf("windowDuration(%q) = %v, want %v", tt.timeRange, got, tt.want)
		}
	}
}
