package sales

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/internal/inventory"
	"github.com/jpcabrerac/mostrador-backend/internal/ledger"
	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/metrics"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

type stockReserver interface {
	Reserve(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error)
	Release(ctx context.Context, shopID uuid.UUID, reservations []inventory.Reservation) error
}

type ledgerWriter interface {
	WriteSale(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error)
}

type balancePoster interface {
	ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error
}

type customerLoader interface {
	Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SaleRequest is one counter sale.
type SaleRequest struct {
	CustomerID  uuid.UUID
	Items       []inventory.Line
	BillTotal   decimal.Decimal
	PaidAmount  decimal.Decimal
	Mode        enums.PaymentMode
	BillNumber  *string
	Description string
}

// Service runs the sale pipeline: reserve stock, write the ledger row, post
// the balance delta, queue the domain event. Each step coordinates through
// the store, never through shared in-process state.
type Service interface {
	Sell(ctx context.Context, shopID uuid.UUID, request SaleRequest) (*models.Transaction, error)
}

type service struct {
	stock        stockReserver
	ledgerSvc    ledgerWriter
	balances     balancePoster
	customers    customerLoader
	events       outboxPublisher
	salesMetrics *metrics.SalesMetrics
	logg         *logger.Logger
}

// ServiceParams carries the saga's dependencies.
type ServiceParams struct {
	Stock        stockReserver
	Ledger       ledgerWriter
	Balances     balancePoster
	Customers    customerLoader
	Events       outboxPublisher
	SalesMetrics *metrics.SalesMetrics
	Logger       *logger.Logger
}

// NewService builds the sale saga.
func NewService(params ServiceParams) (Service, error) {
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reserver required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger writer required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance poster required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		stock:        params.Stock,
		ledgerSvc:    params.Ledger,
		balances:     params.Balances,
		customers:    params.Customers,
		events:       params.Events,
		salesMetrics: params.SalesMetrics,
		logg:         params.Logger,
	}, nil
}

func (s *service) Sell(ctx context.Context, shopID uuid.UUID, request SaleRequest) (*models.Transaction, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if request.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(request.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	// The customer must exist before any stock moves.
	if _, err := s.customers.Get(ctx, shopID, request.CustomerID); err != nil {
		return nil, err
	}

	reservations, err := s.stock.Reserve(ctx, shopID, request.Items)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStockConflict {
			s.salesMetrics.IncStockConflict()
		}
		return nil, err
	}

	snapshot := make([]models.SaleItem, 0, len(reservations))
	for _, res := range reservations {
		snapshot = append(snapshot, models.SaleItem{
			ItemID:    res.ItemID,
			Name:      res.Name,
			Qty:       res.Qty,
			UnitPrice: res.UnitPrice,
		})
	}

	row, err := s.ledgerSvc.WriteSale(ctx, shopID, ledger.SaleInput{
		CustomerID:  request.CustomerID,
		Mode:        request.Mode,
		BillTotal:   request.BillTotal,
		PaidAmount:  request.PaidAmount,
		BillNumber:  request.BillNumber,
		Items:       snapshot,
		Description: request.Description,
	})
	if err != nil {
		// No ledger row, so the stock must go back on the shelf. The
		// original failure is what the caller sees either way.
		if rerr := s.stock.Release(ctx, shopID, reservations); rerr != nil {
			s.logg.Error(ctx, "rolling back reservations after ledger failure", rerr)
		} else {
			s.salesMetrics.AddStockRollbacks(len(reservations))
		}
		return nil, err
	}

	// From here the sale is committed. A failed posting leaves the ledger
	// authoritative and the reconcile job closes the gap.
	delta := ledger.SignedEffect(row.Type, row.Amount)
	if !delta.IsZero() {
		if err := s.balances.ApplyDelta(ctx, shopID, request.CustomerID, delta); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"transaction_id": row.ID.String(),
				"customer_id":    request.CustomerID.String(),
				"delta":          delta.String(),
			})
			s.logg.Error(logCtx, "sale recorded but balance delta failed", err)
		}
	}

	if s.events != nil {
		if err := s.events.Emit(ctx, nil, outbox.DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   row.ID,
			Data: map[string]any{
				"customer_id": request.CustomerID.String(),
				"bill_total":  request.BillTotal.String(),
				"paid_amount": request.PaidAmount.String(),
				"mode":        request.Mode,
			},
		}); err != nil {
			s.logg.Error(ctx, "queueing sale event", err)
		}
	}

	s.salesMetrics.IncSaleCompleted(string(request.Mode))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transaction_id": row.ID.String(),
		"customer_id":    request.CustomerID.String(),
		"bill_total":     request.BillTotal.String(),
		"mode":           string(request.Mode),
	})
	s.logg.Info(logCtx, "sale completed")

	return row, nil
}
