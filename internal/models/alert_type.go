package models

import "gorm.io/gorm"

// AlertType is a registered alert category. Name is the canonical
// (lowercase, trimmed) form referenced by alerts and thresholds.
type AlertType struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null"`
	Description string
}
