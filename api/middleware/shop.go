package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jpcabrerac/mostrador-backend/api/responses"
	pkgerrors "github.com/jpcabrerac/mostrador-backend/pkg/errors"
	"github.com/jpcabrerac/mostrador-backend/pkg/logger"
)

// ShopScope binds the request to the shop named in the URL. A token scoped
// to a shop may only touch that shop; an unscoped token is rejected.
func ShopScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, "shopID")
			shopID, err := uuid.Parse(raw)
			if err != nil || shopID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shop id"))
				return
			}

			tokenShop := ShopIDFromContext(r.Context())
			if tokenShop == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
				return
			}
			if tokenShop != shopID.String() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "token is not scoped to this shop"))
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithShopID(ctx, shopID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
