package sales

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcabrerac/mostrador-backend/internal/inventory"
	"github.com/jpcabrerac/mostrador-backend/internal/ledger"
	"github.com/jpcabrerac/mostrador-backend/pkg/db/models"
	"github.com/jpcabrerac/mostrador-backend/pkg/enums"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
	"github.com/jpcabrerac/mostrador-backend/pkg/outbox"
)

type stubStock struct {
	reserveFn    func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error)
	released     [][]inventory.Reservation
	releaseError error
}

func (s *stubStock) Reserve(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
	return s.reserveFn(ctx, shopID, lines)
}

func (s *stubStock) Release(ctx context.Context, shopID uuid.UUID, reservations []inventory.Reservation) error {
	s.released = append(s.released, reservations)
	return s.releaseError
}

type stubLedger struct {
	writeFn func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error)
}

func (s *stubLedger) WriteSale(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) {
	return s.writeFn(ctx, shopID, input)
}

type stubBalances struct {
	deltas []decimal.Decimal
	err    error
}

func (s *stubBalances) ApplyDelta(ctx context.Context, shopID, customerID uuid.UUID, delta decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	s.deltas = append(s.deltas, delta)
	return nil
}

type stubCustomers struct {
	err error
}

func (s *stubCustomers) Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Customer{ID: customerID, ShopID: shopID}, nil
}

type stubEvents struct {
	events []outbox.DomainEvent
}

func (s *stubEvents) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "sales-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func defaultReservations(lines []inventory.Line) []inventory.Reservation {
	out := make([]inventory.Reservation, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.Reservation{
			ItemID:      line.ItemID,
			Name:        "Tile",
			UnitPrice:   decimal.NewFromInt(100),
			Qty:         line.Qty,
			PreviousQty: line.Qty + 1,
		})
	}
	return out
}

func saleRequest() SaleRequest {
	return SaleRequest{
		CustomerID: uuid.New(),
		Items:      []inventory.Line{{ItemID: uuid.New(), Qty: 10}},
		BillTotal:  decimal.NewFromInt(1000),
		PaidAmount: decimal.NewFromInt(300),
		Mode:       enums.PaymentModeCredit,
	}
}

func newSaga(t *testing.T, stock *stubStock, ledgerStub *stubLedger, balances *stubBalances, events *stubEvents) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Stock:     stock,
		Ledger:    ledgerStub,
		Balances:  balances,
		Customers: &stubCustomers{},
		Events:    events,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSellCreditSalePostsUnpaidRemainder(t *testing.T) {
	t.Parallel()

	stock := &stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
		return defaultReservations(lines), nil
	}}
	var written *ledger.SaleInput
	ledgerStub := &stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) {
		written = &input
		return &models.Transaction{
			ID:         uuid.New(),
			ShopID:     shopID,
			CustomerID: input.CustomerID,
			Type:       enums.TransactionTypeCredit,
			Amount:     input.BillTotal.Sub(input.PaidAmount),
		}, nil
	}}
	balances := &stubBalances{}
	events := &stubEvents{}
	svc := newSaga(t, stock, ledgerStub, balances, events)

	row, err := svc.Sell(context.Background(), uuid.New(), saleRequest())
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if written == nil || len(written.Items) != 1 || written.Items[0].Name != "Tile" {
		t.Fatalf("snapshot should come from the reservations, got %+v", written)
	}
	if len(balances.deltas) != 1 || !balances.deltas[0].Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected one +700 delta, got %v", balances.deltas)
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventSaleCompleted {
		t.Fatalf("expected sale_completed event, got %+v", events.events)
	}
	if events.events[0].AggregateID != row.ID {
		t.Fatalf("event should reference the transaction")
	}
	if len(stock.released) != 0 {
		t.Fatalf("successful sale must not release stock")
	}
}

func TestSellLedgerFailureReleasesReservations(t *testing.T) {
	t.Parallel()

	lines := []inventory.Line{{ItemID: uuid.New(), Qty: 3}}
	stock := &stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, got []inventory.Line) ([]inventory.Reservation, error) {
		return defaultReservations(got), nil
	}}
	boom := pkgerrors.New(pkgerrors.CodeInternal, "insert failed")
	ledgerStub := &stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) {
		return nil, boom
	}}
	balances := &stubBalances{}
	svc := newSaga(t, stock, ledgerStub, balances, &stubEvents{})

	request := saleRequest()
	request.Items = lines
	_, err := svc.Sell(context.Background(), uuid.New(), request)
	if !errors.Is(err, boom) {
		t.Fatalf("caller should see the ledger failure, got %v", err)
	}
	if len(stock.released) != 1 || len(stock.released[0]) != 1 {
		t.Fatalf("expected one release of one reservation, got %v", stock.released)
	}
	if len(balances.deltas) != 0 {
		t.Fatalf("no balance delta may land without a ledger row")
	}
}

func TestSellStockConflictPropagates(t *testing.T) {
	t.Parallel()

	conflict := pkgerrors.New(pkgerrors.CodeStockConflict, "stock changed")
	stock := &stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
		return nil, conflict
	}}
	ledgerCalled := false
	ledgerStub := &stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) {
		ledgerCalled = true
		return nil, nil
	}}
	svc := newSaga(t, stock, ledgerStub, &stubBalances{}, &stubEvents{})

	_, err := svc.Sell(context.Background(), uuid.New(), saleRequest())
	if !errors.Is(err, conflict) {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	if !pkgerrors.IsRetryable(err) {
		t.Fatal("stock conflict should stay retryable through the saga")
	}
	if ledgerCalled {
		t.Fatal("ledger must not be written when reservation fails")
	}
}

func TestSellBalanceFailureIsTerminalButNotRolledBack(t *testing.T) {
	t.Parallel()

	stock := &stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
		return defaultReservations(lines), nil
	}}
	ledgerStub := &stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) {
		return &models.Transaction{
			ID:     uuid.New(),
			Type:   enums.TransactionTypeCredit,
			Amount: decimal.NewFromInt(700),
		}, nil
	}}
	balances := &stubBalances{err: errors.New("increment timeout")}
	svc := newSaga(t, stock, ledgerStub, balances, &stubEvents{})

	row, err := svc.Sell(context.Background(), uuid.New(), saleRequest())
	if err != nil {
		t.Fatalf("balance failure must not fail the sale: %v", err)
	}
	if row == nil {
		t.Fatal("expected the committed transaction back")
	}
	if len(stock.released) != 0 {
		t.Fatal("balance failure must not release stock")
	}
}

func TestSellUnknownCustomerStopsBeforeReserving(t *testing.T) {
	t.Parallel()

	reserved := false
	stock := &stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
		reserved = true
		return nil, nil
	}}
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	svc, err := NewService(ServiceParams{
		Stock:     stock,
		Ledger:    &stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) { return nil, nil }},
		Balances:  &stubBalances{},
		Customers: &stubCustomers{err: notFound},
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Sell(context.Background(), uuid.New(), saleRequest())
	if !errors.Is(err, notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if reserved {
		t.Fatal("stock must not be touched for an unknown customer")
	}
}

func TestSellValidatesRequestShape(t *testing.T) {
	t.Parallel()

	svc := newSaga(t,
		&stubStock{reserveFn: func(ctx context.Context, shopID uuid.UUID, lines []inventory.Line) ([]inventory.Reservation, error) {
			return nil, nil
		}},
		&stubLedger{writeFn: func(ctx context.Context, shopID uuid.UUID, input ledger.SaleInput) (*models.Transaction, error) { return nil, nil }},
		&stubBalances{}, &stubEvents{})

	request := saleRequest()
	request.Items = nil
	_, err := svc.Sell(context.Background(), uuid.New(), request)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	request = saleRequest()
	request.CustomerID = uuid.Nil
	_, err = svc.Sell(context.Background(), uuid.New(), request)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
