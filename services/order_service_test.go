package services

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/models"
)

func TestCreateFromCheckout(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.NotEmpty(t, order.PublicID)
	assert.Equal(t, 18, order.EstimatedPrepMinutes)

	wantNumber := fmt.Sprintf("UCFC-%s-0001", time.Now().Format("20060102"))
	assert.Equal(t, wantNumber, order.OrderNumber)

	assert.Len(t, order.Items, 1)
	assert.Equal(t, "Fried Chicken Bucket", order.Items[0].ProductName)
	assert.Equal(t, 24.00, order.Items[0].Subtotal)

	mods, err := order.Items[0].ModifierMap()
	assert.NoError(t, err)
	assert.Equal(t, "hot", mods[models.ModifierSpice])
}

func TestOrderNumbersAreMonotonicPerDay(t *testing.T) {
	svc, _ := newTestOrderService(t)

	first, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)
	second, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	day := time.Now().Format("20060102")
	assert.Equal(t, fmt.Sprintf("UCFC-%s-0001", day), first.OrderNumber)
	assert.Equal(t, fmt.Sprintf("UCFC-%s-0002", day), second.OrderNumber)
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := newTestOrderService(t)

	t.Run("total must match components", func(t *testing.T) {
		p := pickupPayload()
		p.Total = 99.99
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})

	t.Run("negative amounts rejected", func(t *testing.T) {
		p := pickupPayload()
		p.Tax = -1
		p.Total = p.Subtotal + p.Tax + p.DeliveryFee
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})

	t.Run("quantity below one rejected", func(t *testing.T) {
		p := pickupPayload()
		p.Items[0].Quantity = 0
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})

	t.Run("delivery requires address", func(t *testing.T) {
		p := pickupPayload()
		p.Type = models.OrderTypeDelivery
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		p := pickupPayload()
		p.Type = "walk_in"
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})

	t.Run("empty modifier rejected", func(t *testing.T) {
		p := pickupPayload()
		p.Items[0].Modifiers = map[string]string{"size": ""}
		_, err := svc.CreateFromCheckout(p)
		assert.Error(t, err)
	})
}

func TestHappyPathTransitions(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	sequence := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusCompleted,
	}
	for _, target := range sequence {
		updated, err := svc.Transition(order.ID, target, StaffActor(1), nil)
		assert.NoError(t, err)
		assert.Equal(t, target, updated.Status)
	}

	entries, err := svc.History(order.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, len(sequence))
	assert.Equal(t, models.OrderStatusCompleted, entries[len(entries)-1].NewStatus)
}

func TestSkippingStatesRejected(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusReady, StaffActor(1), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Status and history untouched by the rejection.
	current, err := svc.GetByID(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, current.Status)

	entries, err := svc.History(order.ID)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRegressionRejected(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusConfirmed, StaffActor(1), nil)
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusPending, StaffActor(1), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalOrdersAreClosed(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	note := "customer no-show"
	_, err = svc.Transition(order.ID, models.OrderStatusCancelled, StaffActor(2), &note)
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusConfirmed, StaffActor(2), nil)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestCancelReachableFromAnyActiveState(t *testing.T) {
	svc, _ := newTestOrderService(t)

	for _, prep := range [][]models.OrderStatus{
		{},
		{models.OrderStatusConfirmed},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing},
		{models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady},
	} {
		order, err := svc.CreateFromCheckout(pickupPayload())
		assert.NoError(t, err)
		for _, target := range prep {
			_, err = svc.Transition(order.ID, target, StaffActor(1), nil)
			assert.NoError(t, err)
		}

		updated, err := svc.Transition(order.ID, models.OrderStatusCancelled, StaffActor(1), nil)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	}
}

// Random transition sequences: whatever happens, the latest history entry
// must agree with the order's current status, and accepted transitions must
// follow the adjacency table.
func TestHistoryMatchesStatusUnderRandomSequences(t *testing.T) {
	svc, _ := newTestOrderService(t)
	rng := rand.New(rand.NewSource(42))

	all := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	}

	for round := 0; round < 20; round++ {
		order, err := svc.CreateFromCheckout(pickupPayload())
		assert.NoError(t, err)

		expected := models.OrderStatusPending
		for step := 0; step < 10; step++ {
			target := all[rng.Intn(len(all))]
			_, err := svc.Transition(order.ID, target, StaffActor(1), nil)

			if expected == models.OrderStatusCompleted || expected == models.OrderStatusCancelled {
				assert.ErrorIs(t, err, ErrOrderClosed)
			} else if CanTransition(expected, target) {
				assert.NoError(t, err)
				expected = target
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}

			current, err := svc.GetByID(order.ID)
			assert.NoError(t, err)
			assert.Equal(t, expected, current.Status)

			entries, err := svc.History(order.ID)
			assert.NoError(t, err)
			if len(entries) > 0 {
				assert.Equal(t, current.Status, entries[len(entries)-1].NewStatus)
			} else {
				assert.Equal(t, models.OrderStatusPending, current.Status)
			}
		}
	}
}

// Two staff actions racing from the same prior state: the CAS admits exactly
// one writer. Simulated with a stale in-memory copy, which is what a lost
// race looks like to the second caller.
func TestConcurrentTransitionSingleWinner(t *testing.T) {
	svc, db := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	var stale models.Order
	assert.NoError(t, db.First(&stale, order.ID).Error)

	// First writer wins.
	_, err = svc.Transition(order.ID, models.OrderStatusConfirmed, StaffActor(1), nil)
	assert.NoError(t, err)

	// Second writer still believes the order is pending.
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.TransitionTx(tx, &stale, models.OrderStatusConfirmed, StaffActor(2), nil)
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	entries, err := svc.History(order.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, StaffActor(1), entries[0].ChangedBy)
}

func TestTransitionEnqueuesNotifications(t *testing.T) {
	svc, db := newTestOrderService(t)

	// Active push subscription for the customer, plus one deactivated that
	// must not receive tasks.
	now := time.Now()
	assert.NoError(t, db.Create(&models.PushSubscription{
		Endpoint: "https://push.example.com/sub/active", P256dhKey: "pk", AuthSecret: "sec",
		OwnerRef: "dina@example.com", Active: true, CreatedAt: now, UpdatedAt: now,
	}).Error)
	assert.NoError(t, db.Create(&models.PushSubscription{
		Endpoint: "https://push.example.com/sub/gone", P256dhKey: "pk", AuthSecret: "sec",
		OwnerRef: "dina@example.com", Active: false, CreatedAt: now, UpdatedAt: now,
	}).Error)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusConfirmed, StaffActor(1), nil)
	assert.NoError(t, err)

	var tasks []models.NotificationTask
	assert.NoError(t, db.Where("order_id = ?", order.ID).Find(&tasks).Error)
	assert.Len(t, tasks, 2)

	byChannel := map[models.NotificationChannel]models.NotificationTask{}
	for _, task := range tasks {
		byChannel[task.Channel] = task
	}
	assert.Equal(t, "+628123456789", byChannel[models.ChannelSMS].Destination)
	assert.Equal(t, "https://push.example.com/sub/active", byChannel[models.ChannelPush].Destination)
	assert.Contains(t, byChannel[models.ChannelSMS].Body, order.OrderNumber)
	assert.Equal(t, models.NotificationStatusPending, byChannel[models.ChannelSMS].Status)
}

func TestCancelledHasNoDefaultTemplate(t *testing.T) {
	svc, db := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusCancelled, StaffActor(1), nil)
	assert.NoError(t, err)

	var count int64
	assert.NoError(t, db.Model(&models.NotificationTask{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmPayment(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	updated, err := svc.ConfirmPayment(order.ID, models.PaymentStatusPaid)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)

	// Totals survive payment confirmation untouched.
	assert.Equal(t, order.Total, updated.Total)
}

func TestLatePaymentOnCancelledOrderRejected(t *testing.T) {
	svc, _ := newTestOrderService(t)

	order, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	_, err = svc.Transition(order.ID, models.OrderStatusCancelled, StaffActor(1), nil)
	assert.NoError(t, err)

	_, err = svc.ConfirmPayment(order.ID, models.PaymentStatusPaid)
	assert.ErrorIs(t, err, ErrOrderClosed)
}

func TestActiveOrdersExcludesTerminalAndReady(t *testing.T) {
	svc, _ := newTestOrderService(t)

	pending, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)

	ready, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)
	for _, target := range []models.OrderStatus{
		models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady,
	} {
		_, err = svc.Transition(ready.ID, target, StaffActor(1), nil)
		assert.NoError(t, err)
	}

	cancelled, err := svc.CreateFromCheckout(pickupPayload())
	assert.NoError(t, err)
	_, err = svc.Transition(cancelled.ID, models.OrderStatusCancelled, StaffActor(1), nil)
	assert.NoError(t, err)

	active, err := svc.ActiveOrders()
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, pending.ID, active[0].ID)
}
