package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/config"
	"github.com/ucfc/fulfillment-app/models"
	"github.com/ucfc/fulfillment-app/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.StatusHistoryEntry{},
		&models.NotificationTask{},
		&models.PushSubscription{},
		&models.PickupCredential{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestConfig() *config.Config {
	return config.Load()
}

func newTestOrderService(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewOrderService(db, newTestConfig()), db
}

func pickupPayload() CheckoutPayload {
	return CheckoutPayload{
		Type:          models.OrderTypePickup,
		CustomerName:  "Dina",
		CustomerEmail: "dina@example.com",
		CustomerPhone: "+628123456789",
		Subtotal:      24.00,
		Tax:           2.40,
		DeliveryFee:   0,
		Total:         26.40,
		Items: []CheckoutItem{
			{ProductName: "Fried Chicken Bucket", UnitPrice: 12.00, Quantity: 2,
				Modifiers: map[string]string{models.ModifierSpice: "hot"}},
		},
	}
}

// fakeProvider satisfies Provider without touching the network.
type fakeProvider struct {
	channel    models.NotificationChannel
	configured bool
	sendErr    error
	calls      int
}

func (f *fakeProvider) Channel() models.NotificationChannel { return f.channel }
func (f *fakeProvider) Configured() bool                    { return f.configured }

func (f *fakeProvider) Send(_ context.Context, _ *models.NotificationTask) (string, error) {
	f.calls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return fmt.Sprintf("ref-%d", f.calls), nil
}

func drainNow(t *testing.T, w *DeliveryWorker) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.Drain(ctx)
}
