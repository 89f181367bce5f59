package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpcabrerac/mostrador-backend/api/controllers"
	"github.com/jpcabrerac/mostrador-backend/api/handlers"
	"github.com/jpcabrerac/mostrador-backend/api/middleware"
	ledgersvc "github.com/jpcabrerac/mostrador-backend/internal/ledger"
	paymentssvc "github.com/jpcabrerac/mostrador-backend/internal/payments"
	salessvc "github.com/jpcabrerac/mostrador-backend/internal/sales"
	"github.com/jpcabrerac/mostrador-backend/pkg/config"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// NewRouter wires the HTTP surface. Shop-scoped routes sit behind bearer
// auth plus the shop-scope check.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger handlers.Pinger,
	redisPinger handlers.Pinger,
	salesService salessvc.Service,
	paymentsService paymentssvc.Service,
	ledgerService ledgersvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)

	r.Get("/healthz", handlers.Healthz(cfg, logg))
	r.Get("/readyz", handlers.Readyz(cfg, logg, dbPinger, redisPinger))

	r.Route("/v1/shops/{shopID}", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.ShopScope(logg),
		)

		r.Post("/sales", controllers.SalesCreate(salesService, logg))
		r.Patch("/transactions/{transactionID}", controllers.TransactionsRevise(ledgerService, logg))

		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Post("/payments", controllers.PaymentsCreate(paymentsService, logg))
			r.Get("/transactions", controllers.TransactionsList(ledgerService, logg))
		})
	})

	return r
}
