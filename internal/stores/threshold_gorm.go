package stores

import (
	"context"
	"errors"

	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/models"
	"gorm.io/gorm"
)

// GormThresholds implements alerts.ThresholdSource. Lookups are keyed
// by the canonical alert-type form; a type with no row never triggers.
type GormThresholds struct {
	db *gorm.DB
}

func NewGormThresholds(db *gorm.DB) *GormThresholds {
	return &GormThresholds{db: db}
}

func (t *GormThresholds) MinThreshold(ctx context.Context, alertType string) (float64, bool, error) {
	var threshold models.AlertThreshold

	err := t.db.WithContext(ctx).
		Where("alert_type = ?", alerts.CanonicalType(alertType)).
		First(&threshold).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return threshold.MinThreshold, true, nil
}
