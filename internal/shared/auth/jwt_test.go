package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerifyJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	token, err := SignJWT(Claims{
		Email:            "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:123"},
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Subject != "google:123" {
		t.Fatalf("expected subject google:123, got %q", claims.Subject)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("expected email, got %q", claims.Email)
	}
}

func TestVerifyJWTRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	past := time.Now().Add(-time.Hour)
	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "google:123",
		IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(past),
	}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyJWTRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "one")
	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "google:1"}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	t.Setenv("JWT_SECRET", "two")
	if _, err := VerifyJWT(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyJWTRejectsForeignIssuer(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "google:1", Issuer: "someone-else"}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSecretRequiredInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "production")
	if _, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "google:1"}}); err == nil {
		t.Fatalf("expected error without secret in production")
	}
}

func TestIdentity(t *testing.T) {
	g := Guest(" abc ")
	if g.UserID != "guest:abc" || g.Authenticated() {
		t.Fatalf("unexpected guest identity: %+v", g)
	}
	if g.Bearer() != "" {
		t.Fatalf("expected no bearer for guest")
	}
	u := Identity{UserID: "google:1", Token: "tok"}
	if !u.Authenticated() || u.Bearer() != "Bearer tok" {
		t.Fatalf("unexpected user identity: %+v", u)
	}
}
