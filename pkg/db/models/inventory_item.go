package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem tracks sellable stock for one shop. QuantityOnHand is only
// ever mutated through the reservation coordinator's conditional updates.
type InventoryItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID         uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index"`
	Name           string          `gorm:"column:name;not null"`
	QuantityOnHand int             `gorm:"column:quantity_on_hand;not null;default:0"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(14,3);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
