package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jerichox/jerichox-security/internal/accounts"
	"github.com/jerichox/jerichox-security/internal/api"
	"github.com/jerichox/jerichox-security/internal/audit"
	"github.com/jerichox/jerichox-security/internal/auth"
	"github.com/jerichox/jerichox-security/internal/cameras"
	"github.com/jerichox/jerichox-security/internal/config"
	"github.com/jerichox/jerichox-security/internal/crypto"
	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/devices"
	"github.com/jerichox/jerichox-security/internal/events"
	"github.com/jerichox/jerichox-security/internal/hikconnect"
	"github.com/jerichox/jerichox-security/internal/metrics"
	"github.com/jerichox/jerichox-security/internal/middleware"
	"github.com/jerichox/jerichox-security/internal/ratelimit"
	"github.com/jerichox/jerichox-security/internal/tokens"
)

const serviceName = "jerichox-hikconnect"

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	flag.Parse()

	// 1. Config + logging
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("service", serviceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. DB
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		fatal(logger, "db open", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fatal(logger, "db ping", err)
	}

	// 3. Optional Redis (distributed lock, token revocation, rate limit)
	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err)
		}
	}

	// 4. Optional NATS
	var publisher devices.Publisher = events.Nop{}
	if cfg.NATS.Enabled() {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(serviceName))
		if err != nil {
			logger.Warn("NATS connect failed, sync events disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			defer nc.Drain()
			publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.MaxRetries, logger)
			logger.Info("NATS connected", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		}
	}

	// 5. Components
	cipher, err := crypto.NewSecretCipher(cfg.Security.EncryptionKey, crypto.Mode(cfg.Security.CipherMode))
	if err != nil {
		fatal(logger, "cipher init", err)
	}
	if cipher.Mode() == crypto.ModeLegacy {
		logger.Warn("secret cipher in legacy mode (AES-CBC, fixed IV); set CIPHER_MODE=gcm once stored secrets are migrated")
	}

	vendorLimit := rate.Inf
	if cfg.Vendor.RatePerSec > 0 {
		vendorLimit = rate.Limit(cfg.Vendor.RatePerSec)
	}
	newClient := hikconnect.NewFactory(
		hikconnect.WithTimeout(cfg.Vendor.Timeout),
		hikconnect.WithLimiter(rate.NewLimiter(vendorLimit, max(cfg.Vendor.Burst, 1))),
		hikconnect.WithFallback(hikconnect.ParseFallbackMode(cfg.Vendor.Fallback)),
		hikconnect.WithLogger(logger),
	)

	auditService := audit.NewService(db, logger)
	stats := data.StatsModel{DB: db}
	collector := metrics.NewCollector(stats, 30*time.Second, logger)
	collector.Start(ctx)

	var locker devices.Locker = devices.NewKeyedMutex()
	if rdb != nil {
		locker = devices.NewRedisLocker(rdb, cfg.Redis.LockTTL)
	}

	accountService := accounts.NewService(db, cipher, newClient, auditService, logger)
	synchronizer := devices.NewSynchronizer(db, cipher, newClient, locker,
		devices.WithPublisher(publisher),
		devices.WithRecorder(collector),
		devices.WithAuditor(auditService),
		devices.WithLogger(logger),
		devices.WithTimeout(cfg.Sync.Timeout),
	)
	cameraService := cameras.NewService(db, auditService, logger)

	var scheduler *devices.Scheduler
	if cfg.Sync.Schedule != "" {
		scheduler, err = devices.NewScheduler(cfg.Sync.Schedule, synchronizer, logger)
		if err != nil {
			fatal(logger, "sync scheduler", err)
		}
		scheduler.Start()
	}

	// 6. HTTP
	tokenMgr := tokens.NewManager(cfg.Security.JWTSigningKey)
	var blacklist auth.TokenBlacklist
	var vendorRateLimit func(http.Handler) http.Handler
	if rdb != nil {
		blacklist = auth.NewRedisBlacklist(rdb)
		if cfg.RateLimit.VendorRequests > 0 {
			vendorRateLimit = middleware.RateLimit(ratelimit.NewLimiter(rdb), "hikconnect_vendor", ratelimit.LimitConfig{
				Rate:   cfg.RateLimit.VendorRequests,
				Window: cfg.RateLimit.Window,
			})
		}
	}

	handler := api.NewHikConnectHandler(accountService, synchronizer, cameraService, stats, logger)
	router := api.NewRouter(api.RouterConfig{
		Handler:        handler,
		Auth:           middleware.NewJWTAuth(tokenMgr, blacklist).Middleware,
		VendorLimit:    vendorRateLimit,
		Metrics:        collector.Handler(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		SyncTimeout:    cfg.Sync.Timeout + 30*time.Second,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "http server", err)
		}
	}()

	// 7. Graceful shutdown
	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg+" failed", "error", err)
	os.Exit(1)
}
