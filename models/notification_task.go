package models

import (
	"time"
)

type NotificationChannel string

const (
	ChannelSMS  NotificationChannel = "sms"
	ChannelPush NotificationChannel = "push"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	// Claim marker: a worker pass has taken the task and is calling the
	// provider. Overlapping passes must not re-claim it.
	NotificationStatusSending NotificationStatus = "sending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NotificationTask is one outbound message owned by the notification queue.
// Delivery is at-least-once per channel, bounded by the attempt limit.
type NotificationTask struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID uint  `gorm:"not null;index" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	Channel NotificationChannel `gorm:"type:varchar(10);not null;index" json:"channel"`

	// Phone number for SMS, subscription endpoint for push.
	Destination string `gorm:"type:varchar(255);not null" json:"destination"`
	Body        string `gorm:"type:text;not null" json:"body"`

	Status   NotificationStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	Attempts int                `gorm:"not null;default:0" json:"attempts"`

	ProviderRef *string `gorm:"type:varchar(100)" json:"provider_ref,omitempty"`
	LastError   *string `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
