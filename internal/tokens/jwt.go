package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	Issuer           = "jerichox-security"
	DefaultAccessTTL = 15 * time.Minute
)

type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"
)

type Claims struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"sub"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager issues and validates HS256 tokens. Sessions and login live
// elsewhere; this service only needs to verify bearers.
type Manager struct {
	signingKey []byte
	accessTTL  time.Duration
	parser     *jwt.Parser
}

func NewManager(signingKey string) *Manager {
	return &Manager{
		signingKey: []byte(signingKey),
		accessTTL:  DefaultAccessTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// WithAccessTTL returns a copy of m that issues access tokens valid for ttl.
func (m *Manager) WithAccessTTL(ttl time.Duration) *Manager {
	cp := *m
	if ttl > 0 {
		cp.accessTTL = ttl
	}
	return &cp
}

func (m *Manager) GenerateAccessToken(userID, tenantID string) (string, error) {
	return m.generateToken(userID, tenantID, Access, m.accessTTL)
}

func (m *Manager) generateToken(userID, tenantID string, tokenType TokenType, duration time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now().UTC()
	claims := Claims{
		TenantID:  tenantID,
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(), // jti
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
}

// ValidateToken accepts only HS256 tokens from Issuer that carry an expiry.
// Every failure wraps ErrInvalidToken.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
