package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Alert struct {
	gorm.Model

	CarID           uint    `gorm:"not null;index:idx_car_type"`
	AlertType       string  `gorm:"not null;index:idx_car_type"`
	Severity        string  `gorm:"not null"` // "low", "medium", "high", "critical"
	ConfidenceScore float64 `gorm:"not null"`
	Status          string  `gorm:"not null;default:new;index"`
	Description     string
	Context         datatypes.JSON `gorm:"type:jsonb"` // classification context: candidate scores, selection, caller metadata
	AcknowledgedBy  *uint
	AcknowledgedAt  *time.Time

	// Relationships
	Car           Car            `gorm:"foreignKey:CarID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Acknowledger  *User          `gorm:"foreignKey:AcknowledgedBy;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Notifications []Notification `gorm:"foreignKey:AlertID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
