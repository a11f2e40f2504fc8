package router

import (
	"time"

	"github.com/fleetpulse/fleetpulse/internal/handlers"
	"github.com/fleetpulse/fleetpulse/internal/middleware"
	"github.com/fleetpulse/fleetpulse/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(alertHandler *handlers.AlertHandler) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/alerts", middleware.AuthMiddleware(), handlers.AlertFeed)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), handlers.UpdateUser)
			auth.DELETE("/me", middleware.AuthMiddleware(), handlers.DeleteUser)
		}

		cars := api.Group("/cars", middleware.AuthMiddleware())
		{
			cars.POST("", handlers.CreateCar)
			cars.GET("", handlers.ListCars)
			cars.GET("/:car_id", handlers.GetCar)
			cars.PUT("/:car_id", handlers.UpdateCar)
			cars.DELETE("/:car_id", handlers.DeleteCar)
		}

		alerts := api.Group("/alerts", middleware.AuthMiddleware())
		{
			alerts.POST("", alertHandler.Ingest)
			alerts.GET("", alertHandler.ListAlerts)
			alerts.GET("/stats", alertHandler.GetStatistics)
			alerts.GET("/:alert_id", alertHandler.GetAlert)
			alerts.PATCH("/:alert_id/status", alertHandler.UpdateStatus)
			alerts.GET("/:alert_id/history", alertHandler.GetAlertHistory)
			alerts.DELETE("/:alert_id", middleware.RequireAdmin(), alertHandler.DeleteAlert)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireAdmin())
		{
			admin.POST("/alert-types", handlers.CreateAlertType)
			admin.GET("/alert-types", handlers.ListAlertTypes)
			admin.DELETE("/alert-types/:name", handlers.DeleteAlertType)

			admin.PUT("/thresholds", handlers.UpsertThreshold)
			admin.GET("/thresholds", handlers.ListThresholds)
			admin.DELETE("/thresholds/:name", handlers.DeleteThreshold)
		}
	}

	return r
}
