package handlers

import (
	"net/http"

	"github.com/jpcabrerac/mostrador-backend/api/responses"
	"github.com/jpcabrerac/mostrador-backend/pkg/config"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

func Healthz(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "env", cfg.App.Env), "health.check")
		}
		w.Header().Set("X-Mostrador-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
