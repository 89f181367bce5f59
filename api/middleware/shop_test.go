package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func shopRequest(t *testing.T, urlShop string, tokenShop string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/shops/"+urlShop+"/sales", nil)
	if tokenShop != "" {
		req = req.WithContext(WithShopID(req.Context(), tokenShop))
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("shopID", urlShop)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestShopScopeAllowsMatchingShop(t *testing.T) {
	t.Parallel()

	shopID := uuid.New()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	resp := httptest.NewRecorder()
	ShopScope(nil)(next).ServeHTTP(resp, shopRequest(t, shopID.String(), shopID.String()))

	if !called {
		t.Fatal("handler did not run")
	}
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}

func TestShopScopeRejectsForeignShop(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	resp := httptest.NewRecorder()
	ShopScope(nil)(next).ServeHTTP(resp, shopRequest(t, uuid.NewString(), uuid.NewString()))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestShopScopeRejectsUnscopedToken(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	resp := httptest.NewRecorder()
	ShopScope(nil)(next).ServeHTTP(resp, shopRequest(t, uuid.NewString(), ""))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestShopScopeRejectsMalformedID(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	resp := httptest.NewRecorder()
	ShopScope(nil)(next).ServeHTTP(resp, shopRequest(t, "not-a-uuid", uuid.NewString()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
