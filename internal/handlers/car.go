package handlers

import (
	"errors"
	"net/http"

	"github.com/fleetpulse/fleetpulse/db"
	"github.com/fleetpulse/fleetpulse/internal/models"
	"github.com/fleetpulse/fleetpulse/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateCarRequest struct {
	Name        string `json:"name" binding:"required"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	PlateNumber string `json:"plate_number" binding:"required"`
}

type UpdateCarRequest struct {
	Name   string `json:"name" binding:"required"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	Status string `json:"status"`
}

type CarResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	PlateNumber string `json:"plate_number"`
	Status      string `json:"status"`
	OwnerID     uint   `json:"owner_id"`
}

func carResponse(car models.Car) CarResponse {
	return CarResponse{
		ID:          car.ID,
		Name:        car.Name,
		Make:        car.Make,
		Model:       car.CarModel,
		PlateNumber: car.PlateNumber,
		Status:      car.Status,
		OwnerID:     car.OwnerID,
	}
}

func CreateCar(ctx *gin.Context) {
	var body CreateCarRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	car := models.Car{
		OwnerID:     userID,
		Name:        body.Name,
		Make:        body.Make,
		CarModel:    body.Model,
		PlateNumber: body.PlateNumber,
		Status:      "active",
	}

	if err := db.DB.Create(&car).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create car"})
		return
	}

	ctx.JSON(http.StatusCreated, carResponse(car))
}

func ListCars(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var cars []models.Car

	if err := db.DB.Where("owner_id = ?", userID).Find(&cars).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve cars"})
		return
	}

	response := make([]CarResponse, 0, len(cars))

	for _, car := range cars {
		response = append(response, carResponse(car))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetCar(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	carID, err := utils.GetCarID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var car models.Car

	if err := db.DB.Where("id = ? AND owner_id = ?", carID, userID).First(&car).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve car"})
		}
		return
	}

	ctx.JSON(http.StatusOK, carResponse(car))
}

func UpdateCar(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	carID, err := utils.GetCarID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body UpdateCarRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var car models.Car

	if err := db.DB.Where("id = ? AND owner_id = ?", carID, userID).First(&car).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve car"})
		}
		return
	}

	car.Name = body.Name
	car.Make = body.Make
	car.CarModel = body.Model

	if body.Status != "" {
		car.Status = body.Status
	}

	if err := db.DB.Save(&car).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update car"})
		return
	}

	ctx.JSON(http.StatusOK, carResponse(car))
}

func DeleteCar(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	carID, err := utils.GetCarID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var car models.Car

	if err := db.DB.Where("id = ? AND owner_id = ?", carID, userID).First(&car).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve car"})
		}
		return
	}

	if err := db.DB.Delete(&car).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete car"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
