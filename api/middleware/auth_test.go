package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/jpcabrerac/mostrador-backend/pkg/auth"
	"github.com/jpcabrerac/mostrador-backend/pkg/config"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "mostrador-test",
	ExpirationMinutes: 60,
}

func mintToken(t *testing.T, userID uuid.UUID, shopID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		ShopID: shopID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsContext(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	shopID := uuid.New()

	var seenUser, seenShop string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserIDFromContext(r.Context())
		seenShop = ShopIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID, &shopID))

	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", resp.Code, resp.Body.String())
	}
	if seenUser != userID.String() {
		t.Fatalf("user id not seeded: %q", seenUser)
	}
	if seenShop != shopID.String() {
		t.Fatalf("shop id not seeded: %q", seenShop)
	}
}

func TestAuthMissingCredentials(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	t.Parallel()

	foreign := testJWT
	foreign.Issuer = "someone-else"
	token, err := pkgAuth.MintAccessToken(foreign, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
