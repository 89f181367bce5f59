package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
)

func insertRow(t *testing.T, repo Repository, shopID, customerID uuid.UUID, date time.Time) *models.Transaction {
	t.Helper()
	row := &models.Transaction{
		ShopID:     shopID,
		CustomerID: customerID,
		Type:       enums.TransactionTypeCredit,
		Amount:     decimal.NewFromInt(100),
		Date:       date,
	}
	require.NoError(t, repo.Insert(context.Background(), row))
	return row
}

func TestRepositoryFindByIDScopesShop(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	shopID := uuid.New()
	row := insertRow(t, repo, shopID, uuid.New(), time.Now().UTC())

	found, err := repo.FindByID(context.Background(), shopID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	_, err = repo.FindByID(context.Background(), uuid.New(), row.ID)
	assert.Error(t, err, "foreign shop must not see the row")
}

func TestRepositoryListByCustomerOrdersByDateDesc(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	shopID := uuid.New()
	customerID := uuid.New()

	older := insertRow(t, repo, shopID, customerID, time.Now().UTC().Add(-48*time.Hour))
	newer := insertRow(t, repo, shopID, customerID, time.Now().UTC())
	insertRow(t, repo, shopID, uuid.New(), time.Now().UTC())

	rows, err := repo.ListByCustomer(context.Background(), shopID, customerID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)

	rows, err = repo.ListByCustomer(context.Background(), shopID, customerID, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, newer.ID, rows[0].ID)
}

func TestRepositoryIncrementPaidAmountGuardsRemainder(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	shopID := uuid.New()
	billTotal := decimal.NewFromInt(1000)
	paid := decimal.NewFromInt(300)
	row := &models.Transaction{
		ShopID:     shopID,
		CustomerID: uuid.New(),
		Type:       enums.TransactionTypeCredit,
		Amount:     decimal.NewFromInt(700),
		BillTotal:  &billTotal,
		PaidAmount: &paid,
		Date:       time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), row))

	landed, err := repo.IncrementPaidAmount(context.Background(), shopID, row.ID, decimal.NewFromInt(700), Tolerance)
	require.NoError(t, err)
	assert.True(t, landed)

	landed, err = repo.IncrementPaidAmount(context.Background(), shopID, row.ID, decimal.NewFromInt(1), Tolerance)
	require.NoError(t, err)
	assert.False(t, landed, "invoice is already settled")

	stored, err := repo.FindByID(context.Background(), shopID, row.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaidAmount)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(1000)), "paid %s", stored.PaidAmount)
}

func TestRepositoryUpdateRevisionPersistsFields(t *testing.T) {
	t.Parallel()

	repo := NewRepository(newTestDB(t))
	shopID := uuid.New()
	row := insertRow(t, repo, shopID, uuid.New(), time.Now().UTC())

	err := repo.UpdateRevision(context.Background(), shopID, row.ID, map[string]any{
		"amount":      decimal.NewFromInt(250),
		"description": "corrected",
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), shopID, row.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "corrected", stored.Description)
}
