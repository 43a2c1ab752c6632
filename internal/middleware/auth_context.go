package middleware

import (
	"context"
)

type authContextKey struct{}

// AuthContext is the identity JWTAuth extracts from a valid bearer token.
type AuthContext struct {
	TenantID string
	UserID   string
	TokenID  string // jti
}

// RateKey scopes a per-caller counter. Callers without a user id share the
// tenant bucket.
func (a *AuthContext) RateKey(scope string) string {
	if a.UserID == "" {
		return scope + ":tenant:" + a.TenantID
	}
	return scope + ":" + a.UserID
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok && ac != nil
}

func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// ActorID returns the authenticated user id, or "" for anonymous requests.
// Audit rows and display selections are attributed to it.
func ActorID(ctx context.Context) string {
	if ac, ok := GetAuthContext(ctx); ok {
		return ac.UserID
	}
	return ""
}
