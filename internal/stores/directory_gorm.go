package stores

import (
	"context"

	"github.com/fleetpulse/fleetpulse/internal/models"
	"gorm.io/gorm"
)

// GormDirectory implements the car and user existence checks the alert
// service needs.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) CarExists(ctx context.Context, id uint) (bool, error) {
	var count int64

	err := d.db.WithContext(ctx).
		Model(&models.Car{}).
		Where("id = ?", id).
		Count(&count).Error

	return count > 0, err
}

func (d *GormDirectory) UserExists(ctx context.Context, id uint) (bool, error) {
	var count int64

	err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Count(&count).Error

	return count > 0, err
}
