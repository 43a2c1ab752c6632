package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Security  SecurityConfig  `yaml:"security"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Sync      SyncConfig      `yaml:"sync"`
	Vendor    VendorConfig    `yaml:"vendor"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders a lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL renders the same connection as a postgres:// URL for golang-migrate.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
	CipherMode    string `yaml:"cipher_mode"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type NATSConfig struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	MaxRetries int    `yaml:"max_retries"`
}

func (n NATSConfig) Enabled() bool { return n.URL != "" }

type SyncConfig struct {
	// Schedule is a standard five-field cron expression. Empty disables
	// scheduled syncs.
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

type VendorConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
	Fallback   string        `yaml:"fallback"`
}

type RateLimitConfig struct {
	VendorRequests int           `yaml:"vendor_requests"`
	Window         time.Duration `yaml:"window"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3001",
			AllowedOrigins: []string{"http://localhost:3000"},
			RequestTimeout: 60 * time.Second,
			ShutdownGrace:  15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "jerichox",
			Name:    "jerichox_security",
			SSLMode: "disable",
		},
		Security: SecurityConfig{CipherMode: "legacy"},
		Redis:    RedisConfig{LockTTL: 10 * time.Minute},
		NATS:     NATSConfig{Subject: "hikconnect.sync.completed", MaxRetries: 3},
		Sync:     SyncConfig{Timeout: 5 * time.Minute},
		Vendor: VendorConfig{
			Timeout:    30 * time.Second,
			RatePerSec: 5,
			Burst:      5,
			Fallback:   "mock",
		},
		RateLimit: RateLimitConfig{VendorRequests: 10, Window: time.Minute},
		LogLevel:  "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if any), then the environment. A .env file in the working directory is
// merged into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Server.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = parseList(v)
	}
	errs = append(errs, setDuration(&c.Server.RequestTimeout, "REQUEST_TIMEOUT"))

	c.applyDatabaseEnv()

	setString(&c.Security.EncryptionKey, "ENCRYPTION_KEY")
	setString(&c.Security.CipherMode, "CIPHER_MODE")
	setString(&c.Security.JWTSigningKey, "JWT_SIGNING_KEY")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	errs = append(errs, setDuration(&c.Redis.LockTTL, "REDIS_LOCK_TTL"))

	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.NATS.Subject, "NATS_SUBJECT")

	setString(&c.Sync.Schedule, "SYNC_SCHEDULE")
	errs = append(errs, setDuration(&c.Sync.Timeout, "SYNC_TIMEOUT"))

	errs = append(errs, setDuration(&c.Vendor.Timeout, "VENDOR_TIMEOUT"))
	if v := os.Getenv("VENDOR_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("VENDOR_RATE_PER_SEC: %w", err))
		} else {
			c.Vendor.RatePerSec = f
		}
	}
	setString(&c.Vendor.Fallback, "VENDOR_FALLBACK")

	if v := os.Getenv("RATE_LIMIT_VENDOR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_VENDOR: %w", err))
		} else {
			c.RateLimit.VendorRequests = n
		}
	}
	errs = append(errs, setDuration(&c.RateLimit.Window, "RATE_LIMIT_WINDOW"))

	setString(&c.LogLevel, "LOG_LEVEL")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadDatabaseEnv applies .env and DB_* overrides only, for tools that need
// nothing but a connection.
func (c *Config) LoadDatabaseEnv() error {
	_ = godotenv.Load()
	c.applyDatabaseEnv()
	if c.Database.Name == "" {
		return fmt.Errorf("%w: DB_NAME is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDatabaseEnv() {
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Security.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}
	if c.Security.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	switch c.Security.CipherMode {
	case "", "legacy", "gcm":
	default:
		errs = append(errs, fmt.Errorf("CIPHER_MODE must be legacy or gcm, got %q", c.Security.CipherMode))
	}
	switch c.Vendor.Fallback {
	case "mock", "empty":
	default:
		errs = append(errs, fmt.Errorf("VENDOR_FALLBACK must be mock or empty, got %q", c.Vendor.Fallback))
	}
	if c.Vendor.RatePerSec < 0 {
		errs = append(errs, errors.New("VENDOR_RATE_PER_SEC must not be negative"))
	}
	if c.Sync.Timeout <= 0 {
		errs = append(errs, errors.New("SYNC_TIMEOUT must be positive"))
	}
	if c.Redis.Enabled() && c.Sync.Timeout >= c.Redis.LockTTL {
		errs = append(errs, fmt.Errorf("SYNC_TIMEOUT (%s) must be shorter than REDIS_LOCK_TTL (%s)", c.Sync.Timeout, c.Redis.LockTTL))
	}
	if c.RateLimit.VendorRequests < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_VENDOR must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
