package models

import (
	"time"
)

// ActorSystem identifies transitions performed by the pipeline itself
// (payment signals, expiry sweeps) rather than a staff member.
const ActorSystem = "system"

// StatusHistoryEntry is an append-only audit record of one accepted status
// transition. Entries are never updated or deleted; the latest entry's
// NewStatus always matches the order's current status.
type StatusHistoryEntry struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID uint  `gorm:"not null;index" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	PrevStatus OrderStatus `gorm:"type:varchar(20);not null" json:"prev_status"`
	NewStatus  OrderStatus `gorm:"type:varchar(20);not null" json:"new_status"`

	// Staff identifier ("staff:<id>") or ActorSystem.
	ChangedBy string  `gorm:"type:varchar(50);not null" json:"changed_by"`
	Note      *string `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
