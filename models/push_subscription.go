package models

import (
	"time"
)

// PushSubscription is one browser/device push endpoint. Deactivating keeps
// the row (and every NotificationTask that referenced it) but removes the
// endpoint from future dispatch.
type PushSubscription struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Endpoint string `gorm:"type:varchar(255);uniqueIndex;not null" json:"endpoint"`

	P256dhKey  string `gorm:"type:varchar(255);not null" json:"p256dh_key"`
	AuthSecret string `gorm:"type:varchar(255);not null" json:"auth_secret"`

	// Account id or guest email of the subscriber.
	OwnerRef  string `gorm:"type:varchar(100);not null;index" json:"owner_ref"`
	UserAgent string `gorm:"type:varchar(255)" json:"user_agent"`

	Active        bool  `gorm:"not null;default:true" json:"active"`
	DeliveryCount int64 `gorm:"not null;default:0" json:"delivery_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
