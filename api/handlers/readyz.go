package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jpcabrerac/mostrador-backend/api/responses"
	"github.com/jpcabrerac/mostrador-backend/pkg/config"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readyzTimeout = 2 * time.Second

// Readyz reports whether the API can reach its backing stores. A nil pinger
// is skipped, which lets partial deployments (no redis) stay ready.
func Readyz(cfg *config.Config, logg *logger.Logger, db, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		checks := map[string]string{}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
			checks["database"] = "ok"
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		w.Header().Set("X-Mostrador-Env", cfg.App.Env)
		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
