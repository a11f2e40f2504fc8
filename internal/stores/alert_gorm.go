package stores

import (
	"context"
	"errors"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/models"
	"gorm.io/gorm"
)

// GormAlertStore implements alerts.AlertStore on Postgres.
type GormAlertStore struct {
	db *gorm.DB
}

func NewGormAlertStore(db *gorm.DB) *GormAlertStore {
	return &GormAlertStore{db: db}
}

func (s *GormAlertStore) Insert(ctx context.Context, alert *models.Alert) error {
	return s.db.WithContext(ctx).Create(alert).Error
}

func (s *GormAlertStore) ByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert

	err := s.db.WithContext(ctx).
		Preload("Car").
		Preload("Acknowledger").
		First(&alert, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, alerts.ErrAlertNotFound
		}
		return nil, err
	}

	return &alert, nil
}

// LatestSince returns the most recent alert for (carID, alertType)
// created at or after since, or nil when there is none.
func (s *GormAlertStore) LatestSince(ctx context.Context, carID uint, alertType string, since time.Time) (*models.Alert, error) {
	var alert models.Alert

	err := s.db.WithContext(ctx).
		Where("car_id = ? AND alert_type = ? AND created_at >= ?", carID, alertType, since).
		Order("created_at DESC").
		First(&alert).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &alert, nil
}

func (s *GormAlertStore) UpdateConfidence(ctx context.Context, id uint, confidence float64) error {
	return s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("confidence_score", confidence).Error
}

func (s *GormAlertStore) Update(ctx context.Context, alert *models.Alert) error {
	return s.db.WithContext(ctx).Save(alert).Error
}

func (s *GormAlertStore) Delete(ctx context.Context, alert *models.Alert) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Dependent notification rows go first; the FK cascade covers
		// fresh schemas but not databases migrated before it existed.
		if err := tx.Where("alert_id = ?", alert.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		return tx.Delete(alert).Error
	})
}

func (s *GormAlertStore) List(ctx context.Context, filter alerts.Filter) ([]models.Alert, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Alert{})

	if filter.OwnerID != 0 {
		query = query.Joins("JOIN cars ON cars.id = alerts.car_id").
			Where("cars.owner_id = ?", filter.OwnerID)
	}

	if filter.CarID != 0 {
		query = query.Where("alerts.car_id = ?", filter.CarID)
	}

	if len(filter.Types) > 0 {
		query = query.Where("alerts.alert_type IN ?", filter.Types)
	}

	if len(filter.Severities) > 0 {
		query = query.Where("alerts.severity IN ?", filter.Severities)
	}

	if len(filter.Statuses) > 0 {
		query = query.Where("alerts.status IN ?", filter.Statuses)
	}

	if filter.From != nil {
		query = query.Where("alerts.created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		query = query.Where("alerts.created_at <= ?", *filter.To)
	}

	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Alert

	err := query.
		Preload("Car").
		Order("alerts." + filter.SortBy + " " + filter.SortDir).
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Find(&rows).Error

	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// Statistics aggregates alerts owned (through cars) by ownerID since
// the given time. Latency averages are computed only over resolved
// alerts that carry an acknowledgement timestamp.
func (s *GormAlertStore) Statistics(ctx context.Context, ownerID uint, since time.Time) (*alerts.Statistics, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Model(&models.Alert{}).
			Joins("JOIN cars ON cars.id = alerts.car_id").
			Where("cars.owner_id = ? AND alerts.created_at >= ?", ownerID, since)
	}

	stats := &alerts.Statistics{
		BySeverity: make(map[string]int64),
		ByStatus:   make(map[string]int64),
		ByType:     make(map[string]int64),
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}

	groupCounts := func(column string, into map[string]int64) error {
		var buckets []bucket

		err := base().
			Select(column + " AS key, COUNT(*) AS count").
			Group(column).
			Scan(&buckets).Error

		if err != nil {
			return err
		}

		for _, b := range buckets {
			into[b.Key] = b.Count
		}

		return nil
	}

	if err := groupCounts("alerts.severity", stats.BySeverity); err != nil {
		return nil, err
	}

	if err := groupCounts("alerts.status", stats.ByStatus); err != nil {
		return nil, err
	}

	if err := groupCounts("alerts.alert_type", stats.ByType); err != nil {
		return nil, err
	}

	type latencies struct {
		AckMinutes     float64
		ResolveMinutes float64
	}

	var lat latencies

	err := base().
		Select(
			"COALESCE(AVG(EXTRACT(EPOCH FROM (alerts.acknowledged_at - alerts.created_at)) / 60), 0) AS ack_minutes, " +
				"COALESCE(AVG(EXTRACT(EPOCH FROM (alerts.updated_at - alerts.created_at)) / 60), 0) AS resolve_minutes").
		Where("alerts.status = ? AND alerts.acknowledged_at IS NOT NULL", alerts.StatusResolved).
		Scan(&lat).Error

	if err != nil {
		return nil, err
	}

	stats.AvgAcknowledgeMinutes = lat.AckMinutes
	stats.AvgResolveMinutes = lat.ResolveMinutes

	return stats, nil
}
