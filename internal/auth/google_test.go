package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestStartCarriesSessionThroughState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("client", "secret", "http://api.local/callback", "http://ui.local/done")
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start?session=sess-9", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in redirect")
	}

	login, ok := svc.consumeState(state)
	if !ok || login.SessionID != "sess-9" {
		t.Fatalf("unexpected state %+v ok=%v", login, ok)
	}
	if _, ok := svc.consumeState(state); ok {
		t.Fatalf("state must be single use")
	}
}

func TestStartRequiresConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("", "", "", "")
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("client", "secret", "http://api.local/callback", "http://ui.local/done")
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=abc", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUIRedirectURL(t *testing.T) {
	got, err := uiRedirectURL("http://ui.local/done?x=1", "tok", "sess-1")
	if err != nil {
		t.Fatalf("uiRedirectURL: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "tok" || u.Query().Get("session") != "sess-1" || u.Query().Get("x") != "1" {
		t.Fatalf("unexpected redirect %s", got)
	}

	got, err = uiRedirectURL("http://ui.local/done", "tok", "")
	if err != nil {
		t.Fatalf("uiRedirectURL: %v", err)
	}
	if u, _ := url.Parse(got); u.Query().Has("session") {
		t.Fatalf("session should be omitted when empty: %s", got)
	}

	if _, err := uiRedirectURL("", "tok", ""); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}
