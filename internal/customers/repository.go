package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
)

// LedgerBalance pairs a customer with the balance recomputed from their
// transactions. The reconcile job diffs these against running_balance.
type LedgerBalance struct {
	CustomerID    uuid.UUID
	ShopID        uuid.UUID
	StoredBalance decimal.Decimal
	LedgerBalance decimal.Decimal
}

// Repository exposes customer reads plus the atomic balance increment.
type Repository interface {
	FindByID(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
	// IncrementBalance adds delta to running_balance without reading first.
	IncrementBalance(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) (bool, error)
	// SetBalance overwrites running_balance; only the reconcile job uses it.
	SetBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error
	// LedgerBalances recomputes each customer's balance as the signed sum of
	// their transactions (credits positive, debits negative).
	LedgerBalances(ctx context.Context, shopID uuid.UUID) ([]LedgerBalance, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("id = ?", customerID).
		Where("shop_id = ?", shopID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) IncrementBalance(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Where("shop_id = ?", shopID).
		Updates(map[string]any{
			"running_balance": gorm.Expr("running_balance + ?", delta),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"running_balance": balance,
			"updated_at":      time.Now(),
		}).Error
}

func (r *repository) LedgerBalances(ctx context.Context, shopID uuid.UUID) ([]LedgerBalance, error) {
	query := r.db.WithContext(ctx).
		Table("customers").
		Select(`customers.id AS customer_id,
			customers.shop_id AS shop_id,
			customers.running_balance AS stored_balance,
			COALESCE(SUM(CASE WHEN transactions.type = 'credit' THEN transactions.amount
				WHEN transactions.type = 'debit' THEN -transactions.amount
				ELSE 0 END), 0) AS ledger_balance`).
		Joins("LEFT JOIN transactions ON transactions.customer_id = customers.id").
		Group("customers.id, customers.shop_id, customers.running_balance")
	if shopID != uuid.Nil {
		query = query.Where("customers.shop_id = ?", shopID)
	}

	var rows []LedgerBalance
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
