package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// Service is the balance accumulator. Every balance movement in the system
// funnels through ApplyDelta.
type Service interface {
	Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
	// ApplyDelta moves running_balance by delta via a store-level atomic
	// increment. A zero delta is a no-op.
	ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the balance accumulator.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindByID(ctx, shopID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "customer %s not found", customerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading customer")
	}
	return customer, nil
}

func (s *service) ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if delta.IsZero() {
		return nil
	}
	ok, err := s.repo.IncrementBalance(ctx, shopID, customerID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying balance delta")
	}
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "customer %s not found", customerID)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"customer_id": customerID.String(),
		"delta":       delta.String(),
	})
	s.logg.Info(logCtx, "balance delta applied")
	return nil
}
