package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
)

// Repository owns the transactions table. Rows are append-only except for
// paid_amount (moved by the payment allocator's guarded increment) and the
// revision fields (moved by Revise).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, shopID, transactionID uuid.UUID) (*models.Transaction, error)
	ListByCustomer(ctx context.Context, shopID, customerID uuid.UUID, limit int) ([]models.Transaction, error)
	// IncrementPaidAmount adds amount to the invoice's paid_amount only while
	// the result stays within bill_total plus tolerance. Returns false when a
	// concurrent payment already consumed the remainder.
	IncrementPaidAmount(ctx context.Context, shopID, invoiceID uuid.UUID, amount, tolerance decimal.Decimal) (bool, error)
	// UpdateRevision persists the replacement fields chosen by Revise.
	UpdateRevision(ctx context.Context, shopID, transactionID uuid.UUID, fields map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, shopID, transactionID uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ?", transactionID).
		Where("shop_id = ?", shopID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByCustomer(ctx context.Context, shopID, customerID uuid.UUID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Where("customer_id = ?", customerID).
		Order("date DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) IncrementPaidAmount(ctx context.Context, shopID, invoiceID uuid.UUID, amount, tolerance decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", invoiceID).
		Where("shop_id = ?", shopID).
		Where("bill_total IS NOT NULL").
		Where("COALESCE(paid_amount, 0) + ? <= bill_total + ?", amount, tolerance).
		Updates(map[string]any{
			"paid_amount": gorm.Expr("COALESCE(paid_amount, 0) + ?", amount),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateRevision(ctx context.Context, shopID, transactionID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", transactionID).
		Where("shop_id = ?", shopID).
		Updates(fields).Error
}
