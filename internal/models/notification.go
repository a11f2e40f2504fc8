package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	gorm.Model

	AlertID uint   `gorm:"not null;index"`
	UserID  uint   `gorm:"not null;index"`
	Channel string `gorm:"not null"` // "discord", "slack"
	Status  string `gorm:"not null;default:pending"` // "pending", "sent", "failed"
	Message string
	SentAt  *time.Time

	// Relationships
	Alert Alert `gorm:"foreignKey:AlertID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	User  User  `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
