package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsSource supplies the inventory gauges.
type StatsSource interface {
	Get(ctx context.Context) (*data.Stats, error)
}

// Collector owns the service's Prometheus registry.
type Collector struct {
	registry *prometheus.Registry
	stats    StatsSource
	interval time.Duration
	logger   *slog.Logger

	syncDuration     *prometheus.HistogramVec
	syncTotal        *prometheus.CounterVec
	devicesUpserted  prometheus.Counter
	streamFallbacks  prometheus.Counter
	listingFallbacks prometheus.Counter

	accounts *prometheus.GaugeVec
	devices  *prometheus.GaugeVec
	up       *prometheus.GaugeVec
}

func NewCollector(stats StatsSource, interval time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		stats:    stats,
		interval: interval,
		logger:   logger.With("component", "metrics"),
	}

	c.syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hikconnect_sync_duration_seconds",
		Help:    "Duration of account device synchronizations",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"result"})
	reg.MustRegister(c.syncDuration)

	c.syncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hikconnect_sync_total",
		Help: "Device synchronizations by result",
	}, []string{"result", "fallback"})
	reg.MustRegister(c.syncTotal)

	c.devicesUpserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hikconnect_devices_upserted_total",
		Help: "Device rows written by synchronization",
	})
	reg.MustRegister(c.devicesUpserted)

	c.streamFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hikconnect_stream_url_fallback_total",
		Help: "Devices stored with placeholder stream URLs because the vendor lookup failed",
	})
	reg.MustRegister(c.streamFallbacks)

	c.listingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hikconnect_device_listing_fallback_total",
		Help: "Device listings answered with the fallback list",
	})
	reg.MustRegister(c.listingFallbacks)

	c.accounts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hikconnect_accounts",
		Help: "Stored HikConnect accounts",
	}, []string{"state"})
	reg.MustRegister(c.accounts)

	c.devices = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hikconnect_devices",
		Help: "Synchronized HikConnect devices",
	}, []string{"state"})
	reg.MustRegister(c.devices)

	c.up = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hikconnect_metrics_up",
		Help: "Status of backend components (1=up, 0=down)",
	}, []string{"component"})
	reg.MustRegister(c.up)

	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return c
}

func (c *Collector) ObserveSync(result string, fallback bool, d time.Duration) {
	c.syncDuration.WithLabelValues(result).Observe(d.Seconds())
	c.syncTotal.WithLabelValues(result, strconv.FormatBool(fallback)).Inc()
}

func (c *Collector) DevicesUpserted(n int) { c.devicesUpserted.Add(float64(n)) }

func (c *Collector) StreamURLFallback() { c.streamFallbacks.Inc() }

func (c *Collector) ListingFallback() { c.listingFallbacks.Inc() }

// Start refreshes the inventory gauges until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	if c.stats == nil {
		return
	}
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		c.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect(ctx)
			}
		}
	}()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) collect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s, err := c.stats.Get(ctx)
	if err != nil {
		c.logger.Warn("stats collection failed", "error", err)
		c.up.WithLabelValues("database").Set(0)
		return
	}
	c.up.WithLabelValues("database").Set(1)
	c.accounts.WithLabelValues("total").Set(float64(s.TotalAccounts))
	c.accounts.WithLabelValues("active").Set(float64(s.ActiveAccounts))
	c.devices.WithLabelValues("total").Set(float64(s.TotalDevices))
	c.devices.WithLabelValues("online").Set(float64(s.OnlineDevices))
}
