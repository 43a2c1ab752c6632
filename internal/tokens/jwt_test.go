package tokens_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jerichox/jerichox-security/internal/tokens"
)

func TestTokenGeneration(t *testing.T) {
	mgr := tokens.NewManager("test-secret-key")
	userID := "user-123"
	tenantID := "tenant-abc"

	token, err := mgr.GenerateAccessToken(userID, tenantID)
	if err != nil {
		t.Fatalf("Failed to generate access token: %v", err)
	}

	claims, err := mgr.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("Expected TenantID %s, got %s", tenantID, claims.TenantID)
	}
	if claims.TokenType != tokens.Access {
		t.Errorf("Expected TokenType %s, got %s", tokens.Access, claims.TokenType)
	}
	if claims.Issuer != tokens.Issuer {
		t.Errorf("Expected issuer %s, got %s", tokens.Issuer, claims.Issuer)
	}
}

func TestInvalidSignature(t *testing.T) {
	mgr1 := tokens.NewManager("secret-1")
	mgr2 := tokens.NewManager("secret-2")

	token, _ := mgr1.GenerateAccessToken("u1", "t1")
	_, err := mgr2.ValidateToken(token)
	if !errors.Is(err, tokens.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong signature, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	token := sign(t, "secret", jwt.SigningMethodHS256, tokens.Claims{
		UserID:    "u1",
		TokenType: tokens.Access,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokens.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	if _, err := tokens.NewManager("secret").ValidateToken(token); !errors.Is(err, tokens.ErrInvalidToken) {
		t.Errorf("Expected expired token to be rejected, got %v", err)
	}
}

func TestRejectedClaims(t *testing.T) {
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	cases := []struct {
		name   string
		method jwt.SigningMethod
		claims tokens.Claims
	}{
		{"foreign issuer", jwt.SigningMethodHS256, tokens.Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", ExpiresAt: future}}},
		{"no expiry", jwt.SigningMethodHS256, tokens.Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: tokens.Issuer}}},
		{"hs384", jwt.SigningMethodHS384, tokens.Claims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{Issuer: tokens.Issuer, ExpiresAt: future}}},
		{"no subject", jwt.SigningMethodHS256, tokens.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: tokens.Issuer, ExpiresAt: future}}},
	}
	mgr := tokens.NewManager("secret")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := mgr.ValidateToken(sign(t, "secret", tc.method, tc.claims)); !errors.Is(err, tokens.ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateRequiresUser(t *testing.T) {
	if _, err := tokens.NewManager("secret").GenerateAccessToken("", "t1"); err == nil {
		t.Error("Expected error for empty user id")
	}
}

func sign(t *testing.T, key string, method jwt.SigningMethod, claims tokens.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatal(err)
	}
	return s
}
