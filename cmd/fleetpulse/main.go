package main

import (
	"context"
	"log"
	"os"

	"github.com/fleetpulse/fleetpulse/db"
	"github.com/fleetpulse/fleetpulse/internal/alerts"
	"github.com/fleetpulse/fleetpulse/internal/auth"
	"github.com/fleetpulse/fleetpulse/internal/handlers"
	"github.com/fleetpulse/fleetpulse/internal/history"
	"github.com/fleetpulse/fleetpulse/internal/notifier"
	"github.com/fleetpulse/fleetpulse/internal/router"
	"github.com/fleetpulse/fleetpulse/internal/stores"
	"github.com/joho/godotenv"
)

func main() {
	var err error

	err = godotenv.Load()

	if err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	if err = auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT secret: %v", err)
	}

	if err = db.ConnectDatabase(os.Getenv("DATABASE_URL")); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	mongoDB := os.Getenv("MONGO_DB")

	if mongoDB == "" {
		mongoDB = "fleetpulse"
	}

	if err = db.ConnectMongo(os.Getenv("MONGO_URI"), mongoDB); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	historyStore := history.NewStore(db.Mongo)

	if err = historyStore.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create history indexes: %v", err)
	}

	directory := stores.NewGormDirectory(db.DB)

	service := alerts.NewService(
		directory,
		directory,
		stores.NewGormAlertStore(db.DB),
		stores.NewGormThresholds(db.DB),
		historyStore,
	)

	dispatcher := notifier.NewDispatcher(db.DB, notifier.Config{
		DiscordWebhook: os.Getenv("DISCORD_WEBHOOK_URL"),
		SlackWebhook:   os.Getenv("SLACK_WEBHOOK_URL"),
	})

	dispatcher.Start()
	defer dispatcher.Stop()

	service.SetNotifier(dispatcher)

	r := router.NewRouter(handlers.NewAlertHandler(service))

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err = r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
