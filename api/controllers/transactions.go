package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcabrerac/mostrador-backend/api/responses"
	"github.com/jpcabrerac/mostrador-backend/api/validators"
	ledgersvc "github.com/jpcabrerac/mostrador-backend/internal/ledger"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// TransactionsRevise replaces fields on a ledger row and co-posts the
// compensating balance delta.
func TransactionsRevise(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		shopID, err := shopIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		var payload reviseTransactionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Revise(r.Context(), shopID, transactionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransactionResponse(row))
	}
}

// TransactionsList returns a customer's most recent ledger rows.
func TransactionsList(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByCustomer(r.Context(), shopID, customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]transactionResponse, len(rows))
		for i := range rows {
			out[i] = newTransactionResponse(&rows[i])
		}
		responses.WriteSuccess(w, out)
	}
}

type reviseTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        *string          `json:"type"`
	Date        *time.Time       `json:"date"`
	BillTotal   *decimal.Decimal `json:"bill_total"`
	PaidAmount  *decimal.Decimal `json:"paid_amount"`
	Description *string          `json:"description"`
}

func (r reviseTransactionRequest) toInput() (ledgersvc.RevisionInput, error) {
	input := ledgersvc.RevisionInput{
		Amount:      r.Amount,
		Date:        r.Date,
		BillTotal:   r.BillTotal,
		PaidAmount:  r.PaidAmount,
		Description: r.Description,
	}
	if r.Type != nil {
		parsed, err := enums.ParseTransactionType(*r.Type)
		if err != nil {
			return ledgersvc.RevisionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type")
		}
		input.Type = &parsed
	}
	return input, nil
}
