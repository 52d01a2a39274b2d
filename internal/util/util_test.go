package util

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-jwt-secret"

func signHS256(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestValidateJWTSubject(t *testing.T) {
	signed := signHS256(t, &Claims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ValidateJWT(signed, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT returned error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("expected subject 'user-123', got %q", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("expected email claim to round-trip, got %q", claims.Email)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	signed := signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := ValidateJWT(signed, "other-secret"); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	signed := signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if _, err := ValidateJWT(signed, testSecret); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateJWTMissingSubject(t *testing.T) {
	signed := signHS256(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := ValidateJWT(signed, testSecret)
	if err == nil || !strings.Contains(err.Error(), "no subject") {
		t.Fatalf("expected missing-subject error, got %v", err)
	}
}

func TestValidateJWTUnsupportedAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign unsecured token: %v", err)
	}

	if _, err := ValidateJWT(signed, testSecret); err == nil {
		t.Fatal("expected error for 'none' algorithm token")
	}
}
