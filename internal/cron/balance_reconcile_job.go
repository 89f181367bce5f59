package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/internal/customers"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/metrics"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

// driftTolerance matches the invoice tolerance: differences inside it are
// rounding noise, not drift.
var driftTolerance = decimal.NewFromFloat(0.001)

type balanceReader interface {
	LedgerBalances(ctx context.Context, shopID uuid.UUID) ([]customers.LedgerBalance, error)
	SetBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error
}

type driftPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BalanceReconcileJob recomputes each customer's balance from the ledger and
// compares it to the incrementally maintained running_balance. The counter
// is a shortcut over the transaction history; this job is what keeps the
// shortcut honest.
type BalanceReconcileJob struct {
	balances     balanceReader
	events       driftPublisher
	salesMetrics *metrics.SalesMetrics
	logg         *logger.Logger
	autoCorrect  bool
}

// BalanceReconcileJobParams configure the job.
type BalanceReconcileJobParams struct {
	Balances     balanceReader
	Events       driftPublisher
	SalesMetrics *metrics.SalesMetrics
	Logger       *logger.Logger
	AutoCorrect  bool
}

// NewBalanceReconcileJob builds the reconcile job.
func NewBalanceReconcileJob(params BalanceReconcileJobParams) (*BalanceReconcileJob, error) {
	if params.Balances == nil {
		return nil, fmt.Errorf("balance reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &BalanceReconcileJob{
		balances:     params.Balances,
		events:       params.Events,
		salesMetrics: params.SalesMetrics,
		logg:         params.Logger,
		autoCorrect:  params.AutoCorrect,
	}, nil
}

// Name implements Job.
func (j *BalanceReconcileJob) Name() string {
	return "balance-reconcile"
}

// Run implements Job.
func (j *BalanceReconcileJob) Run(ctx context.Context) error {
	rows, err := j.balances.LedgerBalances(ctx, uuid.Nil)
	if err != nil {
		return fmt.Errorf("recomputing ledger balances: %w", err)
	}

	drifted := 0
	corrected := 0
	for _, row := range rows {
		diff := row.StoredBalance.Sub(row.LedgerBalance).Abs()
		if diff.LessThanOrEqual(driftTolerance) {
			continue
		}
		drifted++

		logCtx := j.logg.WithFields(ctx, map[string]any{
			"customer_id":    row.CustomerID.String(),
			"shop_id":        row.ShopID.String(),
			"stored_balance": row.StoredBalance.String(),
			"ledger_balance": row.LedgerBalance.String(),
		})
		j.logg.Warn(logCtx, "running balance drifted from ledger")

		if j.events != nil {
			if err := j.events.Emit(ctx, nil, outbox.DomainEvent{
				EventType:     enums.EventBalanceDriftFound,
				AggregateType: enums.AggregateCustomer,
				AggregateID:   row.CustomerID,
				Data: map[string]any{
					"stored_balance": row.StoredBalance.String(),
					"ledger_balance": row.LedgerBalance.String(),
				},
			}); err != nil {
				j.logg.Error(ctx, "queueing drift event", err)
			}
		}

		if !j.autoCorrect {
			continue
		}
		if err := j.balances.SetBalance(ctx, row.CustomerID, row.LedgerBalance); err != nil {
			j.logg.Error(logCtx, "rewriting drifted balance", err)
			continue
		}
		corrected++
		j.logg.Info(logCtx, "running balance rewritten from ledger")
	}

	j.salesMetrics.SetDriftCustomers(drifted)
	j.salesMetrics.AddDriftCorrections(corrected)

	summaryCtx := j.logg.WithFields(ctx, map[string]any{
		"customers": len(rows),
		"drifted":   drifted,
		"corrected": corrected,
	})
	j.logg.Info(summaryCtx, "balance reconcile finished")
	return nil
}
