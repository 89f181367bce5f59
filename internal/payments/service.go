package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/internal/ledger"
	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/metrics"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

type balancePoster interface {
	ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error
}

type customerLoader interface {
	Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
}

type ledgerWriter interface {
	WritePayment(ctx context.Context, tx *gorm.DB, shopID, customerID uuid.UUID, amount decimal.Decimal, invoiceID *uuid.UUID, notes string) (*models.Transaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentInput is one received payment, optionally targeted at an invoice.
type PaymentInput struct {
	Amount    decimal.Decimal
	InvoiceID *uuid.UUID
	Notes     string
}

// OverpaymentDetail tells the caller how much room the invoice had left.
type OverpaymentDetail struct {
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	Attempted    decimal.Decimal `json:"attempted"`
}

// Service allocates received payments: invoice paid_amount, the payment's
// debit ledger row, and the customer balance delta.
type Service interface {
	Apply(ctx context.Context, shopID, customerID uuid.UUID, input PaymentInput) (*models.Transaction, error)
}

type service struct {
	db           txRunner
	customers    customerLoader
	balances     balancePoster
	ledgerSvc    ledgerWriter
	invoices     ledger.Repository
	events       outboxPublisher
	salesMetrics *metrics.SalesMetrics
	logg         *logger.Logger
}

// ServiceParams carries the allocator's dependencies.
type ServiceParams struct {
	DB           txRunner
	Customers    customerLoader
	Balances     balancePoster
	Ledger       ledgerWriter
	Invoices     ledger.Repository
	Events       outboxPublisher
	SalesMetrics *metrics.SalesMetrics
	Logger       *logger.Logger
}

// NewService builds the payment allocator.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance poster required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:           params.DB,
		customers:    params.Customers,
		balances:     params.Balances,
		ledgerSvc:    params.Ledger,
		invoices:     params.Invoices,
		events:       params.Events,
		salesMetrics: params.SalesMetrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Apply(ctx context.Context, shopID, customerID uuid.UUID, input PaymentInput) (*models.Transaction, error) {
	if shopID == uuid.Nil || customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop and customer ids required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	if _, err := s.customers.Get(ctx, shopID, customerID); err != nil {
		return nil, err
	}

	// The invoice's paid_amount bump and the payment's debit row commit or
	// roll back together; a failed insert must not leave paid_amount
	// inflated with no ledger row behind it.
	var row *models.Transaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if input.InvoiceID != nil {
			if err := s.settleInvoice(ctx, tx, shopID, customerID, *input.InvoiceID, input.Amount); err != nil {
				return err
			}
		}
		written, err := s.ledgerSvc.WritePayment(ctx, tx, shopID, customerID, input.Amount, input.InvoiceID, input.Notes)
		if err != nil {
			return err
		}
		row = written
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Payment lowers what the customer owes.
	if err := s.balances.ApplyDelta(ctx, shopID, customerID, input.Amount.Neg()); err != nil {
		// Ledger row is committed; mirror the sale saga and leave the
		// balance to the reconcile job rather than unwind a payment.
		s.logg.Error(ctx, "payment recorded but balance delta failed", err)
	}

	if s.events != nil {
		if err := s.events.Emit(ctx, nil, outbox.DomainEvent{
			EventType:     enums.EventPaymentApplied,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customerID,
			Data: map[string]any{
				"transaction_id": row.ID.String(),
				"amount":         input.Amount.String(),
				"invoice_id":     input.InvoiceID,
			},
		}); err != nil {
			s.logg.Error(ctx, "queueing payment event", err)
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"customer_id":    customerID.String(),
		"transaction_id": row.ID.String(),
		"amount":         input.Amount.String(),
	})
	s.logg.Info(logCtx, "payment applied")

	return row, nil
}

func (s *service) settleInvoice(ctx context.Context, tx *gorm.DB, shopID, customerID, invoiceID uuid.UUID, amount decimal.Decimal) error {
	store := s.invoices.WithTx(tx)

	invoice, err := store.FindByID(ctx, shopID, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "invoice %s not found", invoiceID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading invoice")
	}
	if invoice.CustomerID != customerID {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "invoice %s belongs to another customer", invoiceID)
	}
	if invoice.Type != enums.TransactionTypeCredit {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "transaction %s is not an invoice", invoiceID)
	}

	remaining, ok := invoice.RemainingDue()
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invoice %s carries no bill total", invoiceID)
	}
	if amount.GreaterThan(remaining.Add(ledger.Tolerance)) {
		s.salesMetrics.IncOverpaymentRejected()
		return pkgerrors.Newf(pkgerrors.CodeOverpayment,
			"payment %s exceeds the %s remaining on invoice", amount, remaining).
			WithDetails(OverpaymentDetail{
				InvoiceID:    invoiceID,
				RemainingDue: remaining,
				Attempted:    amount,
			})
	}

	// The read above can go stale under concurrent payments; the guarded
	// increment is what actually decides.
	landed, err := store.IncrementPaidAmount(ctx, shopID, invoiceID, amount, ledger.Tolerance)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating invoice paid amount")
	}
	if !landed {
		s.salesMetrics.IncOverpaymentRejected()
		return pkgerrors.Newf(pkgerrors.CodeOverpayment,
			"payment %s no longer fits the invoice remainder", amount).
			WithDetails(OverpaymentDetail{
				InvoiceID:    invoiceID,
				RemainingDue: remaining,
				Attempted:    amount,
			})
	}
	return nil
}
