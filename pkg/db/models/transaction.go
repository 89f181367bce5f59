package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
)

// Transaction is one immutable ledger entry for a customer. Amount, Type,
// Date, BillTotal and PaidAmount may only change through the revision
// reconciler, which co-posts the compensating balance delta.
type Transaction struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ShopID      uuid.UUID             `gorm:"column:shop_id;type:uuid;not null;index"`
	CustomerID  uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	Type        enums.TransactionType `gorm:"column:type;type:text;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(14,3);not null"`
	BillTotal   *decimal.Decimal      `gorm:"column:bill_total;type:numeric(14,3)"`
	PaidAmount  *decimal.Decimal      `gorm:"column:paid_amount;type:numeric(14,3)"`
	BillNumber  *string               `gorm:"column:bill_number"`
	Items       json.RawMessage       `gorm:"column:items;type:jsonb"`
	Description string                `gorm:"column:description"`
	Date        time.Time             `gorm:"column:date;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// SaleItem is one line of the immutable items snapshot stored on a sale
// transaction.
type SaleItem struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// RemainingDue returns billTotal minus paidAmount for invoice-style rows.
// The second return is false when the row carries no bill total.
func (t Transaction) RemainingDue() (decimal.Decimal, bool) {
	if t.BillTotal == nil {
		return decimal.Zero, false
	}
	paid := decimal.Zero
	if t.PaidAmount != nil {
		paid = *t.PaidAmount
	}
	return t.BillTotal.Sub(paid), true
}
