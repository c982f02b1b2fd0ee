package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
)

// Config collects every tunable of the fulfillment pipeline. Values come from
// the environment with development defaults.
type Config struct {
	// Prefix of generated order numbers (PREFIX-YYYYMMDD-NNNN).
	OrderPrefix string

	// Preparation targets in minutes per order type. Also the source of the
	// frozen estimate stamped on new orders.
	SLATargets map[models.OrderType]int

	// Customer message per target status. A status without a template
	// produces no notification on transition.
	Templates map[models.OrderStatus]string

	// Delivery worker tuning.
	MaxAttempts     int
	BatchSize       int
	ProviderTimeout time.Duration

	// Cron schedules for the two queue drains.
	SMSDrainSchedule  string
	PushDrainSchedule string

	// Pickup credential signing.
	CredentialSecret []byte
	CredentialWindow time.Duration

	// Coarse auto-refresh interval advertised to the live display, seconds.
	DisplayRefreshSeconds int
}

func Load() *Config {
	return &Config{
		OrderPrefix: getEnv("ORDER_PREFIX", "UCFC"),
		SLATargets: map[models.OrderType]int{
			models.OrderTypePickup:   getEnvInt("SLA_PICKUP_MINUTES", 18),
			models.OrderTypeDelivery: getEnvInt("SLA_DELIVERY_MINUTES", 40),
			models.OrderTypeDineIn:   getEnvInt("SLA_DINE_IN_MINUTES", 25),
		},
		Templates: map[models.OrderStatus]string{
			models.OrderStatusConfirmed: "Order %s confirmed. We are on it!",
			models.OrderStatusPreparing: "Order %s is being prepared.",
			models.OrderStatusReady:     "Order %s is ready for pickup.",
			models.OrderStatusCompleted: "Order %s completed. Thank you!",
			// No default template for cancelled; set one here to notify on
			// cancellation.
		},
		MaxAttempts:           getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
		BatchSize:             getEnvInt("NOTIFY_BATCH_SIZE", 50),
		ProviderTimeout:       time.Duration(getEnvInt("NOTIFY_TIMEOUT_SECONDS", 15)) * time.Second,
		SMSDrainSchedule:      getEnv("SMS_DRAIN_SCHEDULE", "@every 5m"),
		PushDrainSchedule:     getEnv("PUSH_DRAIN_SCHEDULE", "@every 5m"),
		CredentialSecret:      []byte(getEnv("PICKUP_TOKEN_SECRET", "fulfillment-dev-pickup-secret")),
		CredentialWindow:      time.Duration(getEnvInt("PICKUP_TOKEN_HOURS", 24)) * time.Hour,
		DisplayRefreshSeconds: getEnvInt("DISPLAY_REFRESH_SECONDS", 30),
	}
}

// InitDB opens the MySQL connection described by the DB_* environment
// variables.
func InitDB() (*gorm.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			getEnv("DB_USER", "root"),
			os.Getenv("DB_PASSWORD"),
			getEnv("DB_HOST", "127.0.0.1"),
			getEnv("DB_PORT", "3306"),
			getEnv("DB_NAME", "fulfillment"),
		)
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
