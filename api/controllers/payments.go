package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcabrerac/mostrador-backend/api/responses"
	"github.com/jpcabrerac/mostrador-backend/api/validators"
	paymentssvc "github.com/jpcabrerac/mostrador-backend/internal/payments"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// PaymentsCreate records a received payment against the customer, optionally
// allocating it to one invoice.
func PaymentsCreate(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Apply(r.Context(), shopID, customerID, paymentssvc.PaymentInput{
			Amount:    payload.Amount,
			InvoiceID: payload.InvoiceID,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(row))
	}
}

type createPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	InvoiceID *uuid.UUID      `json:"invoice_id"`
	Notes     string          `json:"notes"`
}
