package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jerichox/jerichox-security/internal/middleware"
)

const BasePath = "/api/hikconnect"

type RouterConfig struct {
	Handler *HikConnectHandler
	Health  *HealthHandler

	// Auth gates everything under BasePath except /health.
	Auth func(http.Handler) http.Handler
	// VendorLimit wraps the routes that call out to HikConnect. Optional.
	VendorLimit func(http.Handler) http.Handler

	Metrics        http.Handler
	AllowedOrigins []string
	RequestTimeout time.Duration
	// SyncTimeout bounds the manual sync route, which runs far longer than
	// ordinary requests.
	SyncTimeout time.Duration
	Logger      *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.SyncTimeout < cfg.RequestTimeout {
		cfg.SyncTimeout = cfg.RequestTimeout
	}
	passthrough := func(next http.Handler) http.Handler { return next }
	if cfg.Auth == nil {
		cfg.Auth = passthrough
	}
	if cfg.VendorLimit == nil {
		cfg.VendorLimit = passthrough
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	h := cfg.Handler
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/health", cfg.Health.GetHealth)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

				r.Get("/accounts", h.ListAccounts)
				r.Post("/accounts", h.CreateAccount)
				r.Delete("/accounts/{id}", h.DeleteAccount)
				r.Post("/accounts/{id}/activate", h.ActivateAccount)
				r.Post("/accounts/{id}/deactivate", h.DeactivateAccount)

				r.Get("/devices/account/{accountId}", h.ListDevices)

				r.Post("/cameras/add", h.AddCamera)
				r.Get("/cameras/display", h.ListDisplayCameras)
				r.Get("/stats", h.GetStats)

				r.With(cfg.VendorLimit).Post("/test-credentials", h.TestCredentials)
			})

			r.Group(func(r chi.Router) {
				r.Use(cfg.VendorLimit)
				r.Use(chimiddleware.Timeout(cfg.SyncTimeout))
				r.Post("/devices/sync/{accountId}", h.SyncDevices)
			})
		})
	})

	return r
}
