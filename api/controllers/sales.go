package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcabrerac/mostrador-backend/api/middleware"
	"github.com/jpcabrerac/mostrador-backend/api/responses"
	"github.com/jpcabrerac/mostrador-backend/api/validators"
	"github.com/jpcabrerac/mostrador-backend/internal/inventory"
	salessvc "github.com/jpcabrerac/mostrador-backend/internal/sales"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// SalesCreate runs a counter sale for the shop in scope.
func SalesCreate(svc salessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Sell(r.Context(), shopID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(row))
	}
}

type createSaleRequest struct {
	CustomerID  uuid.UUID         `json:"customer_id" validate:"required"`
	Items       []saleItemPayload `json:"items" validate:"required,min=1,dive"`
	BillTotal   decimal.Decimal   `json:"bill_total"`
	PaidAmount  decimal.Decimal   `json:"paid_amount"`
	Mode        string            `json:"mode" validate:"required,oneof=cash credit"`
	BillNumber  *string           `json:"bill_number"`
	Description string            `json:"description"`
}

type saleItemPayload struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,min=1"`
}

func (r createSaleRequest) toInput() (salessvc.SaleRequest, error) {
	mode, err := enums.ParsePaymentMode(r.Mode)
	if err != nil {
		return salessvc.SaleRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment mode")
	}

	items := make([]inventory.Line, len(r.Items))
	for i, payload := range r.Items {
		items[i] = inventory.Line{ItemID: payload.ItemID, Qty: payload.Qty}
	}

	return salessvc.SaleRequest{
		CustomerID:  r.CustomerID,
		Items:       items,
		BillTotal:   r.BillTotal,
		PaidAmount:  r.PaidAmount,
		Mode:        mode,
		BillNumber:  r.BillNumber,
		Description: r.Description,
	}, nil
}

// shopIDFromRequest reads the shop seeded by the shop-scope middleware.
func shopIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ShopIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	shopID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop id")
	}
	return shopID, nil
}
