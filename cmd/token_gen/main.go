package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jerichox/jerichox-security/internal/auth"
	"github.com/jerichox/jerichox-security/internal/config"
	"github.com/jerichox/jerichox-security/internal/tokens"
)

// Issues a bearer token for calling the HikConnect API by hand, or revokes
// one through the Redis blacklist.
func main() {
	userID := flag.String("user", "", "User id (sub claim)")
	tenantID := flag.String("tenant", "default", "Tenant id")
	ttl := flag.Duration("ttl", tokens.DefaultAccessTTL, "Token lifetime")
	revoke := flag.String("revoke", "", "Revoke this token instead of issuing one")
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	mgr := tokens.NewManager(cfg.Security.JWTSigningKey).WithAccessTTL(*ttl)

	if *revoke != "" {
		revoked, err := revokeToken(cfg, mgr, *revoke)
		if err != nil {
			fail(err)
		}
		if revoked {
			fmt.Println("revoked")
		} else {
			fmt.Println("token already expired")
		}
		return
	}

	if *userID == "" {
		fail(fmt.Errorf("-user is required"))
	}
	token, err := mgr.GenerateAccessToken(*userID, *tenantID)
	if err != nil {
		fail(err)
	}
	fmt.Println(token)
}

func revokeToken(cfg *config.Config, mgr *tokens.Manager, token string) (bool, error) {
	if !cfg.Redis.Enabled() {
		return false, fmt.Errorf("REDIS_ADDR is required to revoke tokens")
	}
	claims, err := mgr.ValidateToken(token)
	if err != nil {
		return false, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return auth.NewRedisBlacklist(rdb).RevokeUntil(ctx, claims.TenantID, claims.ID, claims.ExpiresAt.Time)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "token_gen:", err)
	os.Exit(1)
}
