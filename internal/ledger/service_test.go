package ledger

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

type recordingPoster struct {
	deltas []decimal.Decimal
	err    error
}

func (p *recordingPoster) ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error {
	if p.err != nil {
		return p.err
	}
	p.deltas = append(p.deltas, delta)
	return nil
}

type recordingQueue struct {
	events []outbox.DomainEvent
}

func (q *recordingQueue) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	q.events = append(q.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Transaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, poster *recordingPoster) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(NewRepository(db), poster, nil, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func saleInput(customerID uuid.UUID) SaleInput {
	return SaleInput{
		CustomerID: customerID,
		Mode:       enums.PaymentModeCredit,
		BillTotal:  decimal.NewFromInt(1000),
		PaidAmount: decimal.NewFromInt(300),
		Items: []models.SaleItem{
			{ItemID: uuid.New(), Name: "Tile", Qty: 10, UnitPrice: decimal.NewFromInt(100)},
		},
	}
}

func TestWriteSaleCreditStoresUnpaidRemainder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, &recordingPoster{})
	shopID := uuid.New()
	customerID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(customerID))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}
	if row.Type != enums.TransactionTypeCredit {
		t.Fatalf("expected credit row, got %s", row.Type)
	}
	if !row.Amount.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected amount 700, got %s", row.Amount)
	}
	if row.BillTotal == nil || !row.BillTotal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected bill total %v", row.BillTotal)
	}

	var items []models.SaleItem
	if err := json.Unmarshal(row.Items, &items); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Tile" || items[0].Qty != 10 {
		t.Fatalf("unexpected snapshot %+v", items)
	}
	if row.Date.IsZero() {
		t.Fatal("expected date to default to now")
	}
}

func TestWriteSaleCashStoresZeroDebit(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t), &recordingPoster{})
	input := saleInput(uuid.New())
	input.Mode = enums.PaymentModeCash
	input.PaidAmount = decimal.NewFromInt(1000)

	row, err := svc.WriteSale(context.Background(), uuid.New(), input)
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}
	if row.Type != enums.TransactionTypeDebit {
		t.Fatalf("cash sale should land as debit, got %s", row.Type)
	}
	if !row.Amount.IsZero() {
		t.Fatalf("fully paid cash sale should carry zero amount, got %s", row.Amount)
	}
}

func TestWriteSaleValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t), &recordingPoster{})
	ctx := context.Background()
	shopID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*SaleInput)
	}{
		{"zero bill total", func(in *SaleInput) { in.BillTotal = decimal.Zero }},
		{"negative paid", func(in *SaleInput) { in.PaidAmount = decimal.NewFromInt(-1) }},
		{"paid above total", func(in *SaleInput) { in.PaidAmount = decimal.NewFromInt(1001) }},
		{"bad mode", func(in *SaleInput) { in.Mode = "barter" }},
		{"no items", func(in *SaleInput) { in.Items = nil }},
		{"zero qty line", func(in *SaleInput) { in.Items[0].Qty = 0 }},
		{"negative price line", func(in *SaleInput) { in.Items[0].UnitPrice = decimal.NewFromInt(-5) }},
		// A partially-paid cash sale would land as a debit that lowers the
		// balance of a customer who still owes the remainder.
		{"partial cash", func(in *SaleInput) { in.Mode = enums.PaymentModeCash }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := saleInput(uuid.New())
			tc.mutate(&input)
			_, err := svc.WriteSale(ctx, shopID, input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestReviseAmountPostsDeltaOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	poster := &recordingPoster{}
	svc := newTestService(t, db, poster)
	shopID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(uuid.New()))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}

	newAmount := decimal.NewFromInt(500)
	revised, err := svc.Revise(context.Background(), shopID, row.ID, RevisionInput{Amount: &newAmount})
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if len(poster.deltas) != 1 {
		t.Fatalf("expected one delta posting, got %d", len(poster.deltas))
	}
	if !poster.deltas[0].Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected delta -200, got %s", poster.deltas[0])
	}
	if !revised.Amount.Equal(newAmount) {
		t.Fatalf("expected persisted amount 500, got %s", revised.Amount)
	}
}

func TestReviseTypeFlipSwingsBothEffects(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	poster := &recordingPoster{}
	svc := newTestService(t, db, poster)
	shopID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(uuid.New()))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}

	// credit 700 -> debit 700: effect goes from +700 to -700.
	debit := enums.TransactionTypeDebit
	if _, err := svc.Revise(context.Background(), shopID, row.ID, RevisionInput{Type: &debit}); err != nil {
		t.Fatalf("revise: %v", err)
	}
	if len(poster.deltas) != 1 || !poster.deltas[0].Equal(decimal.NewFromInt(-1400)) {
		t.Fatalf("expected delta -1400, got %v", poster.deltas)
	}
}

func TestReviseQueuesRevisionEvent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	queue := &recordingQueue{}
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(NewRepository(db), &recordingPoster{}, queue, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	shopID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(uuid.New()))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}

	newAmount := decimal.NewFromInt(500)
	if _, err := svc.Revise(context.Background(), shopID, row.ID, RevisionInput{Amount: &newAmount}); err != nil {
		t.Fatalf("revise: %v", err)
	}

	if len(queue.events) != 1 {
		t.Fatalf("expected one queued event, got %d", len(queue.events))
	}
	event := queue.events[0]
	if event.EventType != enums.EventTransactionRevised {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateType != enums.AggregateTransaction || event.AggregateID != row.ID {
		t.Fatalf("event must target the revised transaction, got %s %s", event.AggregateType, event.AggregateID)
	}
	data, ok := event.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected event data %T", event.Data)
	}
	if data["delta"] != "-200" || data["amount"] != "500" {
		t.Fatalf("unexpected event data %v", data)
	}
}

func TestReviseNoEffectChangeSkipsPosting(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	poster := &recordingPoster{}
	svc := newTestService(t, db, poster)
	shopID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(uuid.New()))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}

	note := "corrected description"
	if _, err := svc.Revise(context.Background(), shopID, row.ID, RevisionInput{Description: &note}); err != nil {
		t.Fatalf("revise: %v", err)
	}
	if len(poster.deltas) != 0 {
		t.Fatalf("description-only revision must not post a delta, got %v", poster.deltas)
	}
}

func TestReviseUnknownTransaction(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t), &recordingPoster{})
	amount := decimal.NewFromInt(10)
	_, err := svc.Revise(context.Background(), uuid.New(), uuid.New(), RevisionInput{Amount: &amount})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIncrementPaidAmountGuardsAgainstOverpayment(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	svc := newTestService(t, db, &recordingPoster{})
	shopID := uuid.New()

	row, err := svc.WriteSale(context.Background(), shopID, saleInput(uuid.New()))
	if err != nil {
		t.Fatalf("write sale: %v", err)
	}

	ctx := context.Background()
	ok, err := repo.IncrementPaidAmount(ctx, shopID, row.ID, decimal.NewFromInt(700), Tolerance)
	if err != nil || !ok {
		t.Fatalf("expected increment to land, ok=%v err=%v", ok, err)
	}
	// Remainder is now zero; any further payment must bounce off the guard.
	ok, err = repo.IncrementPaidAmount(ctx, shopID, row.ID, decimal.NewFromInt(1), Tolerance)
	if err != nil {
		t.Fatalf("guarded increment errored: %v", err)
	}
	if ok {
		t.Fatal("increment beyond bill total should affect zero rows")
	}

	var stored models.Transaction
	if err := db.First(&stored, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	if stored.PaidAmount == nil || !stored.PaidAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected paid amount 1000, got %v", stored.PaidAmount)
	}
}
