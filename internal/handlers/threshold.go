package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/fleetpulse/fleetpulse/db"
	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type CreateAlertTypeRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpsertThresholdRequest struct {
	AlertType    string   `json:"alert_type" binding:"required"`
	MinThreshold *float64 `json:"min_threshold" binding:"required"`
}

// isUniqueViolation reports whether err is a Postgres duplicate-key
// error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func CreateAlertType(ctx *gin.Context) {
	var body CreateAlertTypeRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	alertType := models.AlertType{
		Name:        alerts.CanonicalType(body.Name),
		Description: body.Description,
	}

	if alertType.Name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Alert type name cannot be empty"})
		return
	}

	if err := db.DB.Create(&alertType).Error; err != nil {
		if isUniqueViolation(err) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Alert type already exists"})
			return
		}
		log.Printf("Failed to create alert type: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert type"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"id": alertType.ID, "name": alertType.Name})
}

func ListAlertTypes(ctx *gin.Context) {
	var alertTypes []models.AlertType

	if err := db.DB.Order("name").Find(&alertTypes).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert types"})
		return
	}

	ctx.JSON(http.StatusOK, alertTypes)
}

// DeleteAlertType removes an alert category. Deletion is restricted
// while alerts still reference the type.
func DeleteAlertType(ctx *gin.Context) {
	name := alerts.CanonicalType(ctx.Param("name"))

	var alertType models.AlertType

	if err := db.DB.Where("name = ?", name).First(&alertType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Alert type not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert type"})
		}
		return
	}

	var referencing int64

	if err := db.DB.Model(&models.Alert{}).Where("alert_type = ?", name).Count(&referencing).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check alert references"})
		return
	}

	if referencing > 0 {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Alert type is referenced by existing alerts"})
		return
	}

	if err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alert_type = ?", name).Delete(&models.AlertThreshold{}).Error; err != nil {
			return err
		}

		return tx.Delete(&alertType).Error
	}); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert type"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// UpsertThreshold creates or replaces the minimum confidence for a
// registered alert type.
func UpsertThreshold(ctx *gin.Context) {
	var body UpsertThresholdRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if *body.MinThreshold < 0 || *body.MinThreshold > 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "min_threshold must be between 0 and 1"})
		return
	}

	name := alerts.CanonicalType(body.AlertType)

	var alertType models.AlertType

	if err := db.DB.Where("name = ?", name).First(&alertType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Alert type not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert type"})
		}
		return
	}

	var threshold models.AlertThreshold

	err := db.DB.Where("alert_type = ?", name).First(&threshold).Error

	switch {
	case err == nil:
		threshold.MinThreshold = *body.MinThreshold
		err = db.DB.Save(&threshold).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		threshold = models.AlertThreshold{AlertType: name, MinThreshold: *body.MinThreshold}
		err = db.DB.Create(&threshold).Error

		// A concurrent upsert can win the race to insert; fold into it.
		if err != nil && isUniqueViolation(err) {
			err = db.DB.Model(&models.AlertThreshold{}).
				Where("alert_type = ?", name).
				Update("min_threshold", *body.MinThreshold).Error
		}
	}

	if err != nil {
		log.Printf("Failed to upsert threshold for %s: %v", name, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save threshold"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"alert_type": name, "min_threshold": *body.MinThreshold})
}

func ListThresholds(ctx *gin.Context) {
	var thresholds []models.AlertThreshold

	if err := db.DB.Order("alert_type").Find(&thresholds).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve thresholds"})
		return
	}

	ctx.JSON(http.StatusOK, thresholds)
}

func DeleteThreshold(ctx *gin.Context) {
	name := alerts.CanonicalType(ctx.Param("name"))

	result := db.DB.Where("alert_type = ?", name).Delete(&models.AlertThreshold{})

	if result.Error != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete threshold"})
		return
	}

	if result.RowsAffected == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Threshold not found"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
