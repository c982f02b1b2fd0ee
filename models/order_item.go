package models

import (
	"encoding/json"
	"time"
)

// Modifier keys the checkout boundary validates against. Anything outside
// this set is still stored, but intake rejects empty keys/values.
const (
	ModifierSize   = "size"
	ModifierSpice  = "spice"
	ModifierExtras = "extras"
)

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	// Snapshot of the catalog entry at order time; later menu edits do not
	// rewrite history.
	ProductName string  `gorm:"type:varchar(100);not null" json:"product_name"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`

	Quantity int     `gorm:"not null" json:"quantity"`
	Subtotal float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`

	// Selected modifiers serialized as a JSON object (size/spice/extras plus
	// free-form keys).
	Modifiers string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// SetModifiers stores the modifier set as JSON. A nil or empty map clears it.
func (i *OrderItem) SetModifiers(mods map[string]string) error {
	if len(mods) == 0 {
		i.Modifiers = ""
		return nil
	}
	raw, err := json.Marshal(mods)
	if err != nil {
		return err
	}
	i.Modifiers = string(raw)
	return nil
}

// ModifierMap decodes the stored modifier set. Missing or empty payloads
// yield an empty map.
func (i *OrderItem) ModifierMap() (map[string]string, error) {
	if i.Modifiers == "" {
		return map[string]string{}, nil
	}
	mods := make(map[string]string)
	if err := json.Unmarshal([]byte(i.Modifiers), &mods); err != nil {
		return nil, err
	}
	return mods, nil
}
