package models

import (
	"time"
)

type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeDineIn   OrderType = "dine_in"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PublicID    string `gorm:"type:varchar(36);uniqueIndex;not null" json:"public_id"`
	OrderNumber string `gorm:"type:varchar(20);uniqueIndex;not null" json:"order_number"`

	Type OrderType `gorm:"type:varchar(20);not null" json:"type"`

	CustomerName  string  `gorm:"type:varchar(100);not null" json:"customer_name"`
	CustomerEmail string  `gorm:"type:varchar(100);not null" json:"customer_email"`
	CustomerPhone string  `gorm:"type:varchar(30)" json:"customer_phone"`
	Address       *string `gorm:"type:text" json:"address,omitempty"`

	Subtotal    float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	Tax         float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"tax"`
	DeliveryFee float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"delivery_fee"`
	Total       float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	// Frozen at creation from the per-type preparation target.
	EstimatedPrepMinutes int `gorm:"not null" json:"estimated_prep_minutes"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// IsTerminal reports whether the order can accept no further transitions.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// ElapsedMinutes is the preparation time consumed so far, measured from creation.
func (o *Order) ElapsedMinutes(now time.Time) float64 {
	return now.Sub(o.CreatedAt).Minutes()
}
