package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
)

// transactionResponse is the wire shape for one ledger row.
type transactionResponse struct {
	ID          uuid.UUID        `json:"id"`
	ShopID      uuid.UUID        `json:"shop_id"`
	CustomerID  uuid.UUID        `json:"customer_id"`
	Type        string           `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	BillTotal   *decimal.Decimal `json:"bill_total,omitempty"`
	PaidAmount  *decimal.Decimal `json:"paid_amount,omitempty"`
	BillNumber  *string          `json:"bill_number,omitempty"`
	Items       json.RawMessage  `json:"items,omitempty"`
	Description string           `json:"description,omitempty"`
	Date        time.Time        `json:"date"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func newTransactionResponse(row *models.Transaction) transactionResponse {
	return transactionResponse{
		ID:          row.ID,
		ShopID:      row.ShopID,
		CustomerID:  row.CustomerID,
		Type:        string(row.Type),
		Amount:      row.Amount,
		BillTotal:   row.BillTotal,
		PaidAmount:  row.PaidAmount,
		BillNumber:  row.BillNumber,
		Items:       row.Items,
		Description: row.Description,
		Date:        row.Date,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
