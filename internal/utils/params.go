package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func GetCarID(ctx *gin.Context) (uint64, error) {
	var err error

	carIDStr := ctx.Param("car_id")

	if carIDStr == "" {
		return 0, errors.New("Car ID not found")
	}

	carID, err := strconv.ParseUint(carIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Car ID")
	}

	return carID, nil
}

func GetAlertID(ctx *gin.Context) (uint64, error) {
	var err error

	alertIDStr := ctx.Param("alert_id")

	if alertIDStr == "" {
		return 0, errors.New("Alert ID not found")
	}

	alertID, err := strconv.ParseUint(alertIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("Invalid Alert ID")
	}

	return alertID, nil
}

// ParseCSVQuery splits a comma-separated query value into its non-empty
// parts. Returns nil for an absent or empty value.
func ParseCSVQuery(ctx *gin.Context, key string) []string {
	raw := ctx.Query(key)

	if raw == "" {
		return nil
	}

	var parts []string

	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return parts
}
