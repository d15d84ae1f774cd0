package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "kestrel-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 45*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, 8, cfg.Inventory.LowStockThreshold)
	require.Equal(t, "@every 30m", cfg.Inventory.SweepSchedule)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, 14, cfg.Maintenance.NotificationRetentionDays)
	require.Equal(t, 240*time.Hour, cfg.Maintenance.CartTTL)
	require.Equal(t, "@midnight", cfg.Maintenance.RetentionSchedule)

	require.False(t, cfg.Realtime.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "kestrel", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 5, cfg.Inventory.LowStockThreshold)
	require.Equal(t, "@hourly", cfg.Inventory.SweepSchedule)
	require.Equal(t, 30, cfg.Maintenance.NotificationRetentionDays)
	require.Equal(t, 720*time.Hour, cfg.Maintenance.CartTTL)
	require.True(t, cfg.Realtime.Enabled)
}

func TestJWTServiceConfigFallsBackToDefaultTTL(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "kestrel"}}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "secret", jwtCfg.Secret)
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
}

func TestConnectionConfigSelectsDriverBlock(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "mysql",
		MySQL: DBAuthConfig{
			Host:     "mysql.internal",
			Port:     3307,
			Database: "kestrel",
			Username: "svc",
			Password: "pw",
		},
	}

	conn := cfg.ConnectionConfig()
	require.Equal(t, "mysql", conn.Driver)
	require.Equal(t, "mysql.internal", conn.Host)
	require.Equal(t, 3307, conn.Port)
	require.Equal(t, "kestrel", conn.Name)
	require.Equal(t, "svc", conn.User)
	require.Equal(t, "pw", conn.Password)
}
