package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/middleware"
	"github.com/fleetpulse/fleetpulse/internal/models"
	"github.com/fleetpulse/fleetpulse/internal/utils"
	"github.com/gin-gonic/gin"
)

type IngestAlertRequest struct {
	CarID         uint                   `json:"car_id" binding:"required"`
	Results       map[string]float64     `json:"results" binding:"required"`
	Description   string                 `json:"description"`
	Metadata      map[string]interface{} `json:"metadata"`
	SourceEventID string                 `json:"source_event_id"`
}

type UpdateAlertStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

type AlertResponse struct {
	ID              uint       `json:"id"`
	CarID           uint       `json:"car_id"`
	CarName         string     `json:"car_name,omitempty"`
	AlertType       string     `json:"alert_type"`
	Severity        string     `json:"severity"`
	ConfidenceScore float64    `json:"confidence_score"`
	Status          string     `json:"status"`
	Description     string     `json:"description,omitempty"`
	AcknowledgedBy  *uint      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func alertResponse(alert models.Alert) AlertResponse {
	return AlertResponse{
		ID:              alert.ID,
		CarID:           alert.CarID,
		CarName:         alert.Car.Name,
		AlertType:       alert.AlertType,
		Severity:        alert.Severity,
		ConfidenceScore: alert.ConfidenceScore,
		Status:          alert.Status,
		Description:     alert.Description,
		AcknowledgedBy:  alert.AcknowledgedBy,
		AcknowledgedAt:  alert.AcknowledgedAt,
		CreatedAt:       alert.CreatedAt,
		UpdatedAt:       alert.UpdatedAt,
	}
}

// AlertHandler exposes the alert lifecycle service over HTTP.
type AlertHandler struct {
	service *alerts.Service
}

func NewAlertHandler(service *alerts.Service) *AlertHandler {
	return &AlertHandler{service: service}
}

// Ingest accepts one classification submission and reports which of the
// three creation outcomes applied.
func (h *AlertHandler) Ingest(ctx *gin.Context) {
	var body IngestAlertRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	outcome, err := h.service.CreateAlert(ctx.Request.Context(), alerts.CreateAlertInput{
		CarID:         body.CarID,
		Results:       body.Results,
		Description:   body.Description,
		Metadata:      body.Metadata,
		SourceEventID: body.SourceEventID,
	})

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	switch outcome.Code {
	case alerts.OutcomeCreated:
		BroadcastAlert(*outcome.Alert)
		ctx.JSON(http.StatusCreated, gin.H{
			"outcome": outcome.Code.String(),
			"alert":   alertResponse(*outcome.Alert),
		})
	case alerts.OutcomeSuppressed:
		ctx.JSON(http.StatusAccepted, gin.H{
			"outcome":  outcome.Code.String(),
			"alert_id": outcome.Alert.ID,
		})
	default:
		ctx.JSON(http.StatusOK, gin.H{"outcome": outcome.Code.String()})
	}
}

func (h *AlertHandler) GetAlert(ctx *gin.Context) {
	_, alert, ok := h.loadOwnedAlert(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, alertResponse(*alert))
}

func (h *AlertHandler) ListAlerts(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	filter := alerts.Filter{
		Types:      utils.ParseCSVQuery(ctx, "type"),
		Severities: utils.ParseCSVQuery(ctx, "severity"),
		Statuses:   utils.ParseCSVQuery(ctx, "status"),
		Page:       intQuery(ctx, "page"),
		PerPage:    intQuery(ctx, "per_page"),
		SortBy:     ctx.Query("sort_by"),
		SortDir:    ctx.Query("sort_dir"),
	}

	if carID := intQuery(ctx, "car_id"); carID > 0 {
		filter.CarID = uint(carID)
	}

	// Staff only see alerts for their own fleet; admins may scope to
	// any owner or leave the query fleet-wide.
	if user.Role == "admin" {
		if ownerID := intQuery(ctx, "owner_id"); ownerID > 0 {
			filter.OwnerID = uint(ownerID)
		}
	} else {
		filter.OwnerID = user.ID
	}

	if from, ok := timeQuery(ctx, "from"); ok {
		filter.From = &from
	}

	if to, ok := timeQuery(ctx, "to"); ok {
		filter.To = &to
	}

	list, err := h.service.GetAlerts(ctx.Request.Context(), filter)

	if err != nil {
		log.Printf("Failed to list alerts: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	response := make([]AlertResponse, 0, len(list.Alerts))

	for _, alert := range list.Alerts {
		response = append(response, alertResponse(alert))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"alerts":     response,
		"pagination": list.Pagination,
	})
}

func (h *AlertHandler) UpdateStatus(ctx *gin.Context) {
	user, alert, ok := h.loadOwnedAlert(ctx)

	if !ok {
		return
	}

	var body UpdateAlertStatusRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID := user.ID

	updated, err := h.service.UpdateStatus(ctx.Request.Context(), alert.ID, &userID, body.Status, body.Comment)

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, alertResponse(*updated))
}

func (h *AlertHandler) GetAlertHistory(ctx *gin.Context) {
	_, alert, ok := h.loadOwnedAlert(ctx)

	if !ok {
		return
	}

	entries, err := h.service.GetAlertHistory(ctx.Request.Context(), alert.ID)

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *AlertHandler) GetStatistics(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	userID := user.ID

	if user.Role == "admin" {
		if target := intQuery(ctx, "user_id"); target > 0 {
			userID = uint(target)
		}
	}

	stats, err := h.service.GetAlertStatistics(ctx.Request.Context(), userID, ctx.Query("range"))

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

// DeleteAlert is admin-only (enforced by router middleware).
func (h *AlertHandler) DeleteAlert(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	alertID, err := utils.GetAlertID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := user.ID

	if err := h.service.DeleteAlert(ctx.Request.Context(), uint(alertID), &userID); err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// loadOwnedAlert resolves the :alert_id param and enforces that the
// caller owns the alert's car (admins see everything).
func (h *AlertHandler) loadOwnedAlert(ctx *gin.Context) (middleware.AuthenticatedUser, *models.Alert, bool) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return middleware.AuthenticatedUser{}, nil, false
	}

	alertID, err := utils.GetAlertID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return user, nil, false
	}

	alert, err := h.service.GetAlertByID(ctx.Request.Context(), uint(alertID))

	if err != nil {
		respondServiceError(ctx, err)
		return user, nil, false
	}

	if user.Role != "admin" && alert.Car.OwnerID != user.ID {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return user, nil, false
	}

	return user, alert, true
}

// respondServiceError maps the service's error taxonomy to HTTP status
// codes.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, alerts.ErrCarNotFound),
		errors.Is(err, alerts.ErrUserNotFound),
		errors.Is(err, alerts.ErrAlertNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrInvalidStatus),
		errors.Is(err, alerts.ErrMissingAcknowledger),
		errors.Is(err, alerts.ErrInvalidConfidence):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Alert service error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func intQuery(ctx *gin.Context, key string) int {
	value, err := strconv.Atoi(ctx.Query(key))

	if err != nil {
		return 0
	}

	return value
}

func timeQuery(ctx *gin.Context, key string) (time.Time, bool) {
	raw := ctx.Query(key)

	if raw == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(time.RFC3339, raw)

	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}
