package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "test-passphrase")
	t.Setenv("JWT_SIGNING_KEY", "test-signing-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, "legacy", cfg.Security.CipherMode)
	assert.Equal(t, 30*time.Second, cfg.Vendor.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Timeout)
	assert.Equal(t, "mock", cfg.Vendor.Fallback)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.NATS.Enabled())
	assert.Equal(t, "host=localhost port=5432 user=jerichox password= dbname=jerichox_security sslmode=disable", cfg.Database.DSN())
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "hikconnect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8088"
  allowed_origins: ["https://ops.example.com"]
database:
  host: db.internal
  name: sec
sync:
  schedule: "*/15 * * * *"
  timeout: 2m
vendor:
  rate_per_sec: 2.5
  fallback: empty
`), 0o600))

	t.Setenv("DB_HOST", "db.override")
	t.Setenv("SYNC_TIMEOUT", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "sec", cfg.Database.Name)
	assert.Equal(t, "*/15 * * * *", cfg.Sync.Schedule)
	assert.Equal(t, 90*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, 2.5, cfg.Vendor.RatePerSec)
	assert.Equal(t, "empty", cfg.Vendor.Fallback)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing encryption key", map[string]string{"JWT_SIGNING_KEY": "k"}},
		{"bad cipher mode", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "CIPHER_MODE": "rot13"}},
		{"bad fallback", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "VENDOR_FALLBACK": "random"}},
		{"bad duration", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "SYNC_TIMEOUT": "soon"}},
		{"bad rate", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "VENDOR_RATE_PER_SEC": "fast"}},
		{"sync timeout disabled", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "SYNC_TIMEOUT": "0s"}},
		{"sync outlives redis lock", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "REDIS_ADDR": "localhost:6379", "SYNC_TIMEOUT": "15m"}},
		{"sync equals redis lock", map[string]string{"ENCRYPTION_KEY": "p", "JWT_SIGNING_KEY": "k", "REDIS_ADDR": "localhost:6379", "SYNC_TIMEOUT": "2m", "REDIS_LOCK_TTL": "2m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENCRYPTION_KEY", "")
			t.Setenv("JWT_SIGNING_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_SyncTimeoutWithinLockTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SYNC_TIMEOUT", "15m")
	t.Setenv("REDIS_LOCK_TTL", "20m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Timeout)
}

func TestSlogLevel(t *testing.T) {
	c := &Config{LogLevel: "DEBUG"}
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	c.LogLevel = "bogus"
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
}

func TestLoadDatabaseEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PASSWORD", "pw")

	cfg := Default()
	require.NoError(t, cfg.LoadDatabaseEnv())
	assert.Equal(t, "postgres://jerichox:pw@pg:5432/jerichox_security?sslmode=disable", cfg.Database.URL())
}
