package models

import "gorm.io/gorm"

// AlertThreshold holds the minimum classifier confidence required for
// an alert type to trigger. At most one row per type; a type without a
// threshold never triggers.
type AlertThreshold struct {
	gorm.Model

	AlertType    string  `gorm:"uniqueIndex;not null"`
	MinThreshold float64 `gorm:"not null"` // 0.0 .. 1.0
}
