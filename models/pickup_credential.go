package models

import (
	"time"
)

type VerificationMethod string

const (
	VerificationMethodScan   VerificationMethod = "scan"
	VerificationMethodManual VerificationMethod = "manual"
)

// PickupCredential tracks one issued pickup token. An order holds at most one
// active (non-revoked, non-completed) credential; reissuing revokes the
// previous one. Completed flips false->true exactly once.
type PickupCredential struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	OrderID uint  `gorm:"not null;index" json:"order_id"`
	Order   Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	OrderNumber string `gorm:"type:varchar(20);not null;index" json:"order_number"`

	// HMAC over order public id, order number and issue time. Embedded in the
	// scannable token and re-checked during verification.
	VerificationCode string `gorm:"type:varchar(64);not null" json:"verification_code"`

	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	Revoked bool `gorm:"not null;default:false" json:"revoked"`

	Completed   bool                `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CompletedBy *uint               `json:"completed_by,omitempty"`
	Method      *VerificationMethod `gorm:"type:varchar(10)" json:"method,omitempty"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`
}
