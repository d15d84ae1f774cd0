package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Kestrel backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Inventory   InventoryConfig   `mapstructure:"inventory"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// InventoryConfig tunes the stock engine.
type InventoryConfig struct {
	LowStockThreshold int    `mapstructure:"low_stock_threshold"`
	SweepSchedule     string `mapstructure:"sweep_schedule"`
}

// MaintenanceConfig tunes the background cleaner.
type MaintenanceConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	NotificationRetentionDays int           `mapstructure:"notification_retention_days"`
	CartTTL                   time.Duration `mapstructure:"cart_ttl"`
	RetentionSchedule         string        `mapstructure:"retention_schedule"`
}

// RealtimeConfig toggles the websocket hub.
type RealtimeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("KESTREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/kestrel.sqlite")

	v.SetDefault("auth.jwt.issuer", "kestrel")
	v.SetDefault("auth.jwt.access_token_ttl", "30m")

	v.SetDefault("inventory.low_stock_threshold", 5)
	v.SetDefault("inventory.sweep_schedule", "@hourly")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.notification_retention_days", 30)
	v.SetDefault("maintenance.cart_ttl", "720h") // 30 days
	v.SetDefault("maintenance.retention_schedule", "@daily")

	v.SetDefault("realtime.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
