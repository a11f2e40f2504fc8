package models

import "gorm.io/gorm"

type Car struct {
	gorm.Model

	OwnerID     uint   `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Make        string
	CarModel    string
	PlateNumber string `gorm:"uniqueIndex;not null"`
	Status      string `gorm:"not null;default:active"` // "active", "inactive", "maintenance"

	// Relationships
	Owner  User    `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Alerts []Alert `gorm:"foreignKey:CarID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
