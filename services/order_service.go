package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ucfc/fulfillment-app/config"
	"github.com/ucfc/fulfillment-app/models"
)

// transitions is the adjacency table of the order state machine. Cancelled is
// reachable from every non-terminal state and handled separately.
var transitions = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:   models.OrderStatusConfirmed,
	models.OrderStatusConfirmed: models.OrderStatusPreparing,
	models.OrderStatusPreparing: models.OrderStatusReady,
	models.OrderStatusReady:     models.OrderStatusCompleted,
}

// StaffActor formats the audit identity of a staff member for history
// entries.
func StaffActor(staffID uint) string {
	return fmt.Sprintf("staff:%d", staffID)
}

// CanTransition reports whether from -> to is in the adjacency table.
func CanTransition(from, to models.OrderStatus) bool {
	if to == models.OrderStatusCancelled {
		return from != models.OrderStatusCompleted && from != models.OrderStatusCancelled
	}
	return transitions[from] == to
}

// OrderService is the single writer of order lifecycle state. Every accepted
// transition updates the status, appends the history entry and enqueues the
// customer notification as one transaction.
type OrderService struct {
	db    *gorm.DB
	cfg   *config.Config
	sla   *SLACalculator
	queue *NotificationQueue
}

func NewOrderService(db *gorm.DB, cfg *config.Config) *OrderService {
	return &OrderService{
		db:    db,
		cfg:   cfg,
		sla:   NewSLACalculator(cfg.SLATargets),
		queue: NewNotificationQueue(db),
	}
}

func (s *OrderService) SLA() *SLACalculator       { return s.sla }
func (s *OrderService) Queue() *NotificationQueue { return s.queue }

// CheckoutItem is one finalized line from the cart collaborator.
type CheckoutItem struct {
	ProductName string            `json:"product_name" binding:"required"`
	UnitPrice   float64           `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Modifiers   map[string]string `json:"modifiers,omitempty"`
}

// CheckoutPayload is the finalized order handed over by the checkout
// collaborator after payment capture.
type CheckoutPayload struct {
	Type          models.OrderType     `json:"type" binding:"required"`
	CustomerName  string               `json:"customer_name" binding:"required"`
	CustomerEmail string               `json:"customer_email" binding:"required"`
	CustomerPhone string               `json:"customer_phone"`
	Address       *string              `json:"address,omitempty"`
	Subtotal      float64              `json:"subtotal"`
	Tax           float64              `json:"tax"`
	DeliveryFee   float64              `json:"delivery_fee"`
	Total         float64              `json:"total"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Items         []CheckoutItem       `json:"items" binding:"required"`
}

const moneyEpsilon = 0.005

func (p *CheckoutPayload) validate() error {
	switch p.Type {
	case models.OrderTypePickup, models.OrderTypeDelivery, models.OrderTypeDineIn:
	default:
		return fmt.Errorf("unknown order type %q", p.Type)
	}

	if p.Type == models.OrderTypeDelivery && (p.Address == nil || *p.Address == "") {
		return fmt.Errorf("delivery order requires an address")
	}

	if p.Subtotal < 0 || p.Tax < 0 || p.DeliveryFee < 0 || p.Total < 0 {
		return fmt.Errorf("monetary amounts must be non-negative")
	}
	if math.Abs(p.Total-(p.Subtotal+p.Tax+p.DeliveryFee)) > moneyEpsilon {
		return fmt.Errorf("total %.2f does not match subtotal+tax+fee", p.Total)
	}

	if len(p.Items) == 0 {
		return fmt.Errorf("order has no items")
	}
	var itemSum float64
	for _, item := range p.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("item %q has quantity below 1", item.ProductName)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("item %q has a negative price", item.ProductName)
		}
		for k, v := range item.Modifiers {
			if k == "" || v == "" {
				return fmt.Errorf("item %q has an empty modifier", item.ProductName)
			}
		}
		itemSum += float64(item.Quantity) * item.UnitPrice
	}
	if math.Abs(itemSum-p.Subtotal) > moneyEpsilon {
		return fmt.Errorf("item subtotals %.2f do not match order subtotal %.2f", itemSum, p.Subtotal)
	}

	switch p.PaymentStatus {
	case "", models.PaymentStatusPending, models.PaymentStatusPaid:
	default:
		return fmt.Errorf("unsupported payment status %q at intake", p.PaymentStatus)
	}

	return nil
}

// CreateFromCheckout turns a finalized checkout payload into a pending order
// with its item snapshots. The order number is monotonic per day
// (PREFIX-YYYYMMDD-NNNN) and the preparation estimate is frozen from the
// per-type target.
func (s *OrderService) CreateFromCheckout(payload CheckoutPayload) (*models.Order, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	paymentStatus := payload.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentStatusPending
	}

	order := models.Order{
		PublicID:             uuid.NewString(),
		Type:                 payload.Type,
		CustomerName:         payload.CustomerName,
		CustomerEmail:        payload.CustomerEmail,
		CustomerPhone:        payload.CustomerPhone,
		Address:              payload.Address,
		Subtotal:             payload.Subtotal,
		Tax:                  payload.Tax,
		DeliveryFee:          payload.DeliveryFee,
		Total:                payload.Total,
		Status:               models.OrderStatusPending,
		PaymentStatus:        paymentStatus,
		EstimatedPrepMinutes: s.sla.TargetMinutes(payload.Type),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		number, err := nextOrderNumber(tx, s.cfg.OrderPrefix, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, line := range payload.Items {
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				Subtotal:    float64(line.Quantity) * line.UnitPrice,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := item.SetModifiers(line.Modifiers); err != nil {
				return err
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// nextOrderNumber counts today's orders inside the caller's transaction. The
// unique index on order_number backstops a race between two same-moment
// intakes.
func nextOrderNumber(tx *gorm.DB, prefix string, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	err := tx.Model(&models.Order{}).
		Where("created_at >= ?", dayStart).
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("20060102"), count+1), nil
}

// Transition applies one staff- or system-requested status change. Rejections
// come back as ErrInvalidTransition / ErrOrderClosed with the order left
// untouched.
func (s *OrderService) Transition(orderID uint, target models.OrderStatus, actor string, note *string) (*models.Order, error) {
	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}
		return s.TransitionTx(tx, &order, target, actor, note)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionTx is the transactional core of Transition, exposed so the pickup
// flow can complete an order atomically with its credential update. The
// status write is a compare-and-swap on the expected current status, which is
// the single-writer guarantee: two concurrent attempts from the same prior
// state cannot both succeed.
func (s *OrderService) TransitionTx(tx *gorm.DB, order *models.Order, target models.OrderStatus, actor string, note *string) error {
	if order.IsTerminal() {
		return ErrOrderClosed
	}
	if !CanTransition(order.Status, target) {
		return ErrInvalidTransition
	}

	prev := order.Status
	now := time.Now()
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, prev).
		Updates(map[string]interface{}{
			"status":     target,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race. Reload to classify the rejection.
		var current models.Order
		if err := tx.First(&current, order.ID).Error; err != nil {
			return err
		}
		if current.IsTerminal() {
			return ErrOrderClosed
		}
		return ErrInvalidTransition
	}

	entry := models.StatusHistoryEntry{
		OrderID:    order.ID,
		PrevStatus: prev,
		NewStatus:  target,
		ChangedBy:  actor,
		Note:       note,
		CreatedAt:  now,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	order.Status = target
	order.UpdatedAt = now

	return s.enqueueStatusNotifications(tx, order, target)
}

// enqueueStatusNotifications fans the transition out to every configured
// channel: one SMS task when the customer left a phone number, one push task
// per active subscription owned by the customer. A status without a template
// notifies nobody.
func (s *OrderService) enqueueStatusNotifications(tx *gorm.DB, order *models.Order, target models.OrderStatus) error {
	tmpl, ok := s.cfg.Templates[target]
	if !ok {
		return nil
	}
	body := fmt.Sprintf(tmpl, order.OrderNumber)

	if order.CustomerPhone != "" {
		task := models.NotificationTask{
			OrderID:     order.ID,
			Channel:     models.ChannelSMS,
			Destination: order.CustomerPhone,
			Body:        body,
		}
		if err := s.queue.EnqueueTx(tx, &task); err != nil {
			return err
		}
	}

	var subs []models.PushSubscription
	err := tx.Where("owner_ref = ? AND active = ?", order.CustomerEmail, true).Find(&subs).Error
	if err != nil {
		return err
	}
	for _, sub := range subs {
		task := models.NotificationTask{
			OrderID:     order.ID,
			Channel:     models.ChannelPush,
			Destination: sub.Endpoint,
			Body:        body,
		}
		if err := s.queue.EnqueueTx(tx, &task); err != nil {
			return err
		}
	}

	return nil
}

// ConfirmPayment applies the opaque paid/failed signal from the payment
// collaborator. A confirmation landing on a terminal order (e.g. one already
// cancelled) is rejected with ErrOrderClosed rather than reconciled.
func (s *OrderService) ConfirmPayment(orderID uint, result models.PaymentStatus) (*models.Order, error) {
	if result != models.PaymentStatusPaid && result != models.PaymentStatusFailed {
		return nil, fmt.Errorf("unsupported payment result %q", result)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrOrderNotFound
			}
			return err
		}
		if order.IsTerminal() {
			return ErrOrderClosed
		}

		// Only payment_status moves; totals are frozen at creation.
		err := tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"payment_status": result,
				"updated_at":     time.Now(),
			}).Error
		if err != nil {
			return err
		}
		order.PaymentStatus = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ActiveOrders returns the live-display working set (pending, confirmed,
// preparing) with items preloaded, oldest first. The display layer applies
// its own status-priority sort.
func (s *OrderService) ActiveOrders() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Items").
		Where("status IN ?", []models.OrderStatus{
			models.OrderStatusPending,
			models.OrderStatusConfirmed,
			models.OrderStatusPreparing,
		}).
		Order("created_at asc").
		Find(&orders).Error
	return orders, err
}

func (s *OrderService) GetByID(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").First(&order, orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) GetByNumber(orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Where("order_number = ?", orderNumber).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// History returns the append-only audit trail for one order, oldest first.
func (s *OrderService) History(orderID uint) ([]models.StatusHistoryEntry, error) {
	var entries []models.StatusHistoryEntry
	err := s.db.Where("order_id = ?", orderID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}
