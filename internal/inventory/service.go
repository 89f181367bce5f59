package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// Line is one requested stock line. Lines for the same item are summed
// before any quantity check runs.
type Line struct {
	ItemID uuid.UUID
	Qty    int
}

// Reservation records one applied decrement so a failed sale can hand it
// back to Release. Name and UnitPrice come from the same batch read the
// quantities did, so the sale snapshot matches what was checked.
type Reservation struct {
	ItemID      uuid.UUID
	Name        string
	UnitPrice   decimal.Decimal
	Qty         int
	PreviousQty int
}

// ShortageDetail names the item an INSUFFICIENT_STOCK rejection tripped on.
type ShortageDetail struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Service coordinates all-or-nothing stock reservations for a sale.
type Service interface {
	Reserve(ctx context.Context, shopID uuid.UUID, lines []Line) ([]Reservation, error)
	Release(ctx context.Context, shopID uuid.UUID, reservations []Reservation) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the reservation coordinator.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Reserve checks the whole request against current stock before touching any
// row, then applies one conditional decrement per item. Losing a decrement
// race undoes every decrement already applied and reports STOCK_CONFLICT so
// the caller can retry against fresh quantities.
func (s *service) Reserve(ctx context.Context, shopID uuid.UUID, lines []Line) ([]Reservation, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	wanted := map[uuid.UUID]int{}
	for _, line := range lines {
		if line.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %s quantity must be positive", line.ItemID)
		}
		wanted[line.ItemID] += line.Qty
	}

	ids := make([]uuid.UUID, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	// Stable order keeps concurrent sales decrementing in the same sequence.
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	items, err := s.repo.ListByIDs(ctx, shopID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading inventory")
	}
	byID := make(map[uuid.UUID]models.InventoryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", id)
		}
		if item.QuantityOnHand < wanted[id] {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"item %q has only %d left", item.Name, item.QuantityOnHand).
				WithDetails(ShortageDetail{
					ItemID:    id,
					Name:      item.Name,
					Requested: wanted[id],
					Available: item.QuantityOnHand,
				})
		}
	}

	applied := make([]Reservation, 0, len(ids))
	for _, id := range ids {
		item := byID[id]
		expected := item.QuantityOnHand
		qty := wanted[id]
		ok, err := s.repo.DecrementQuantity(ctx, shopID, id, expected, qty)
		if err != nil {
			if rerr := s.Release(ctx, shopID, applied); rerr != nil {
				s.logg.Error(ctx, "releasing reservations after decrement error", rerr)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
		}
		if !ok {
			// Lost the race to a concurrent sale. Hand back what we took.
			if rerr := s.Release(ctx, shopID, applied); rerr != nil {
				s.logg.Error(ctx, "releasing reservations after lost race", rerr)
			}
			return nil, pkgerrors.Newf(pkgerrors.CodeStockConflict,
				"stock changed while reserving item %q, retry the sale", item.Name)
		}
		applied = append(applied, Reservation{
			ItemID:      id,
			Name:        item.Name,
			UnitPrice:   item.UnitPrice,
			Qty:         qty,
			PreviousQty: expected,
		})
	}

	return applied, nil
}

// Release returns reserved quantities with atomic increments. Every line is
// attempted even when earlier ones fail; failures come back aggregated.
func (s *service) Release(ctx context.Context, shopID uuid.UUID, reservations []Reservation) error {
	var errs error
	for _, res := range reservations {
		if res.Qty <= 0 {
			continue
		}
		if err := s.repo.IncrementQuantity(ctx, shopID, res.ItemID, res.Qty); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("releasing item %s: %w", res.ItemID, err))
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "releasing reservations")
	}
	return nil
}
