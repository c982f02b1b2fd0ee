package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/config"
	"github.com/ucfc/fulfillment-app/middlewares"
	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/router"
	"github.com/ucfc/fulfillment-app/services"
	"github.com/ucfc/fulfillment-app/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	utils.InitLogger()

	cfg := config.Load()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	orders := services.NewOrderService(db, cfg)
	signer := services.NewTokenSigner(cfg.CredentialSecret, cfg.CredentialWindow)
	pickup := services.NewPickupService(db, signer, orders, cfg.CredentialWindow)

	// Notification delivery: one worker per channel on its own schedule.
	queue := orders.Queue()
	smsWorker := services.NewDeliveryWorker(queue, services.NewSMSProvider(),
		cfg.BatchSize, cfg.MaxAttempts, cfg.ProviderTimeout)
	pushWorker := services.NewDeliveryWorker(queue, services.NewPushProvider(db),
		cfg.BatchSize, cfg.MaxAttempts, cfg.ProviderTimeout)

	scheduler := services.NewScheduler()
	if err := scheduler.Register(cfg.SMSDrainSchedule, smsWorker); err != nil {
		utils.ErrorLogger.Fatalf("Failed to schedule SMS drain: %v", err)
	}
	if err := scheduler.Register(cfg.PushDrainSchedule, pushWorker); err != nil {
		utils.ErrorLogger.Fatalf("Failed to schedule push drain: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, cfg, orders, pickup)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.StatusHistoryEntry{},
		&models.NotificationTask{},
		&models.PushSubscription{},
		&models.PickupCredential{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
