package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist reports revoked bearer tokens. Entries are keyed by tenant
// and jti and expire with the token they revoke.
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, tenantID, jti string) (bool, error)
	AddToBlacklist(ctx context.Context, tenantID, jti string, ttl time.Duration) error
}

const revokedPrefix = "hikconnect:revoked:"

type RedisBlacklist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client, now: time.Now}
}

func revokedKey(tenantID, jti string) string {
	return revokedPrefix + tenantID + ":" + jti
}

func (r *RedisBlacklist) IsBlacklisted(ctx context.Context, tenantID, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tenantID, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisBlacklist) AddToBlacklist(ctx context.Context, tenantID, jti string, ttl time.Duration) error {
	return r.client.Set(ctx, revokedKey(tenantID, jti), "revoked", ttl).Err()
}

// RevokeUntil blacklists jti until expiresAt. Tokens that already expired
// are ignored and report false.
func (r *RedisBlacklist) RevokeUntil(ctx context.Context, tenantID, jti string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return false, nil
	}
	if err := r.AddToBlacklist(ctx, tenantID, jti, ttl); err != nil {
		return false, err
	}
	return true, nil
}
