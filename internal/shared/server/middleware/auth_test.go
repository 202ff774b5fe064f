package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"scalp-backend/internal/shared/auth"
)

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.OPTIONS("/api/v1/sessions/current", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions/current", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func identityRouter(captured *auth.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.GET("/api/v1/sessions/:id", func(c *gin.Context) {
		*captured = IdentityFromContext(c)
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthGuestHeader(t *testing.T) {
	var got auth.Identity
	router := identityRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	req.Header.Set("X-Guest-Id", " g-42 ")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.UserID != "guest:g-42" || !got.Guest || got.Authenticated() {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestAuthBearerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := auth.SignJWT(auth.Claims{Email: "a@example.com", RegisteredClaims: jwtSubject("user-1")})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var got auth.Identity
	router := identityRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.UserID != "user-1" || got.Guest || got.Token != token || got.Email != "a@example.com" {
		t.Fatalf("unexpected identity: %+v", got)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	var got auth.Identity
	router := identityRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMissingIdentity(t *testing.T) {
	var got auth.Identity
	router := identityRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthWebsocketQueryFallback(t *testing.T) {
	var got auth.Identity
	router := identityRouter(&got)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1?guestId=g-7", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.UserID != "guest:g-7" {
		t.Fatalf("unexpected identity: %+v", got)
	}

	plain := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s1?guestId=g-7", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, plain)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("query identity must only apply to upgrades, got %d", resp.Code)
	}
}

func jwtSubject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}
