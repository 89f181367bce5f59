package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
)

// Repository exposes the stock queries and the conditional quantity updates
// the reservation coordinator is built on.
type Repository interface {
	ListByIDs(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID) ([]models.InventoryItem, error)
	// DecrementQuantity writes quantity_on_hand = expected - qty only while
	// the row still holds expected. Returns false when a concurrent writer
	// got there first.
	DecrementQuantity(ctx context.Context, shopID, itemID uuid.UUID, expected, qty int) (bool, error)
	// IncrementQuantity adds qty back without reading first.
	IncrementQuantity(ctx context.Context, shopID, itemID uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) ListByIDs(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID) ([]models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DecrementQuantity(ctx context.Context, shopID, itemID uuid.UUID, expected, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Where("shop_id = ?", shopID).
		Where("quantity_on_hand = ?", expected).
		Updates(map[string]any{
			"quantity_on_hand": expected - qty,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) IncrementQuantity(ctx context.Context, shopID, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", itemID).
		Where("shop_id = ?", shopID).
		Updates(map[string]any{
			"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", qty),
			"updated_at":       time.Now(),
		}).Error
}
