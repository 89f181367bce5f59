package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

// Tolerance absorbs numeric rounding on invoice math. paid_amount may land
// at most this far above bill_total.
var Tolerance = decimal.NewFromFloat(0.001)

type balancePoster interface {
	ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error
}

type eventQueuer interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SaleInput is the validated-at-the-edge shape the sale saga hands to
// WriteSale.
type SaleInput struct {
	CustomerID  uuid.UUID
	Mode        enums.PaymentMode
	BillTotal   decimal.Decimal
	PaidAmount  decimal.Decimal
	BillNumber  *string
	Items       []models.SaleItem
	Description string
	Date        time.Time
}

// RevisionInput carries the replacement fields for Revise. Nil means keep
// the stored value.
type RevisionInput struct {
	Amount      *decimal.Decimal
	Type        *enums.TransactionType
	Date        *time.Time
	BillTotal   *decimal.Decimal
	PaidAmount  *decimal.Decimal
	Description *string
}

// Service writes and revises ledger rows. Balance deltas for revisions go
// through the accumulator here; sale and payment deltas are posted by their
// own orchestrators.
type Service interface {
	WriteSale(ctx context.Context, shopID uuid.UUID, input SaleInput) (*models.Transaction, error)
	WritePayment(ctx context.Context, tx *gorm.DB, shopID, customerID uuid.UUID, amount decimal.Decimal, invoiceID *uuid.UUID, notes string) (*models.Transaction, error)
	Revise(ctx context.Context, shopID, transactionID uuid.UUID, input RevisionInput) (*models.Transaction, error)
	ListByCustomer(ctx context.Context, shopID, customerID uuid.UUID, limit int) ([]models.Transaction, error)
}

type service struct {
	repo     Repository
	balances balancePoster
	events   eventQueuer
	logg     *logger.Logger
}

// NewService builds the ledger writer. events may be nil for callers that
// do not publish revision events.
func NewService(repo Repository, balances balancePoster, events eventQueuer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance poster required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, balances: balances, events: events, logg: logg}, nil
}

// SignedEffect is how a row moves the running balance: credits raise what
// the customer owes, debits lower it.
func SignedEffect(t enums.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == enums.TransactionTypeCredit {
		return amount
	}
	return amount.Neg()
}

// WriteSale validates the sale and inserts its immutable ledger row. A
// credit-mode sale lands as a credit row for the unpaid remainder. A
// cash-mode sale must be paid in full and lands as a zero-amount debit
// row: a debit for an outstanding remainder would lower the balance of a
// customer who still owes money.
func (s *service) WriteSale(ctx context.Context, shopID uuid.UUID, input SaleInput) (*models.Transaction, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment mode %q", input.Mode)
	}
	if !input.BillTotal.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bill total must be positive")
	}
	if input.PaidAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot be negative")
	}
	if input.PaidAmount.GreaterThan(input.BillTotal.Add(Tolerance)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot exceed bill total")
	}
	if input.Mode == enums.PaymentModeCash && input.PaidAmount.LessThan(input.BillTotal.Sub(Tolerance)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash sales must be paid in full")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item snapshot cannot be empty")
	}
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %q quantity must be positive", item.Name)
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %q price cannot be negative", item.Name)
		}
	}

	snapshot, err := json.Marshal(input.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding item snapshot")
	}

	txnType := enums.TransactionTypeDebit
	if input.Mode == enums.PaymentModeCredit {
		txnType = enums.TransactionTypeCredit
	}
	amount := input.BillTotal.Sub(input.PaidAmount)

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	billTotal := input.BillTotal
	paidAmount := input.PaidAmount
	row := &models.Transaction{
		ShopID:      shopID,
		CustomerID:  input.CustomerID,
		Type:        txnType,
		Amount:      amount,
		BillTotal:   &billTotal,
		PaidAmount:  &paidAmount,
		BillNumber:  input.BillNumber,
		Items:       snapshot,
		Description: input.Description,
		Date:        date,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting sale transaction")
	}
	return row, nil
}

// WritePayment inserts the debit row recording a received payment. tx may
// be nil; the payment allocator passes the transaction carrying the
// invoice's paid_amount increment so the two commit together.
func (s *service) WritePayment(ctx context.Context, tx *gorm.DB, shopID, customerID uuid.UUID, amount decimal.Decimal, invoiceID *uuid.UUID, notes string) (*models.Transaction, error) {
	if shopID == uuid.Nil || customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop and customer ids required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	description := notes
	if description == "" {
		description = "payment received"
	}
	if invoiceID != nil {
		description = fmt.Sprintf("%s (invoice %s)", description, invoiceID)
	}

	row := &models.Transaction{
		ShopID:      shopID,
		CustomerID:  customerID,
		Type:        enums.TransactionTypeDebit,
		Amount:      amount,
		Description: description,
		Date:        time.Now(),
	}
	if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting payment transaction")
	}
	return row, nil
}

// Revise replaces the mutable fields of a ledger row. The balance delta is
// posted before the fields are persisted; every mutation path that touches
// amount or type must come through here or the running balance drifts.
func (s *service) Revise(ctx context.Context, shopID, transactionID uuid.UUID, input RevisionInput) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	stored, err := s.repo.FindByID(ctx, shopID, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "transaction %s not found", transactionID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
	}

	nextAmount := stored.Amount
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
		}
		nextAmount = *input.Amount
	}
	nextType := stored.Type
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown transaction type %q", *input.Type)
		}
		nextType = *input.Type
	}
	nextBillTotal := stored.BillTotal
	if input.BillTotal != nil {
		if !input.BillTotal.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "bill total must be positive")
		}
		nextBillTotal = input.BillTotal
	}
	nextPaidAmount := stored.PaidAmount
	if input.PaidAmount != nil {
		if input.PaidAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot be negative")
		}
		nextPaidAmount = input.PaidAmount
	}
	if nextBillTotal != nil && nextPaidAmount != nil &&
		nextPaidAmount.GreaterThan(nextBillTotal.Add(Tolerance)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot exceed bill total")
	}

	previousEffect := SignedEffect(stored.Type, stored.Amount)
	nextEffect := SignedEffect(nextType, nextAmount)
	delta := nextEffect.Sub(previousEffect)

	if !delta.IsZero() {
		if err := s.balances.ApplyDelta(ctx, shopID, stored.CustomerID, delta); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	if input.Amount != nil {
		fields["amount"] = *input.Amount
	}
	if input.Type != nil {
		fields["type"] = *input.Type
	}
	if input.Date != nil {
		fields["date"] = *input.Date
	}
	if input.BillTotal != nil {
		fields["bill_total"] = *input.BillTotal
	}
	if input.PaidAmount != nil {
		fields["paid_amount"] = *input.PaidAmount
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if err := s.repo.UpdateRevision(ctx, shopID, transactionID, fields); err != nil {
		// The delta already landed; surface loudly so an operator can
		// reconcile instead of retrying into a double post.
		s.logg.Error(ctx, "revision posted delta but failed to persist fields", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting revision")
	}

	if s.events != nil {
		if err := s.events.Emit(ctx, nil, outbox.DomainEvent{
			EventType:     enums.EventTransactionRevised,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   transactionID,
			Data: map[string]any{
				"customer_id": stored.CustomerID.String(),
				"delta":       delta.String(),
				"amount":      nextAmount.String(),
				"type":        string(nextType),
			},
		}); err != nil {
			s.logg.Error(ctx, "queueing revision event", err)
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transaction_id": transactionID.String(),
		"customer_id":    stored.CustomerID.String(),
		"delta":          delta.String(),
	})
	s.logg.Info(logCtx, "transaction revised")

	return s.repo.FindByID(ctx, shopID, transactionID)
}

func (s *service) ListByCustomer(ctx context.Context, shopID, customerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	rows, err := s.repo.ListByCustomer(ctx, shopID, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing transactions")
	}
	return rows, nil
}
