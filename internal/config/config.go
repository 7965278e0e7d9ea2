// Package config は環境変数（および任意の.envファイル）からアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"stock_tracker/internal/platform/db"
	"stock_tracker/internal/platform/externalapi/twelvedata"
	"stock_tracker/internal/platform/logger"
	"stock_tracker/internal/platform/redis"
)

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// PollConfig は価格監視ループの設定です。
type PollConfig struct {
	Interval     time.Duration
	SkipOverlap  bool
	QuoteTimeout time.Duration
}

// RedisConfig extends the connection settings with the relay channel and cache TTL.
type RedisConfig struct {
	redis.Config
	EventsChannel string
	AlertCacheTTL time.Duration
}

// Config holds all application configuration.
type Config struct {
	Port            string
	ClientOrigin    string // empty allows any origin
	Poll            PollConfig
	DB              db.Config
	Redis           RedisConfig
	TwelveData      twelvedata.Config
	RateLimitPerMin int // 0 disables throttling
	Log             logger.Config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "4000")
	v.SetDefault("CLIENT_ORIGIN", "")

	v.SetDefault("POLL_INTERVAL_MS", 60000)
	v.SetDefault("POLL_SKIP_OVERLAP", false)
	v.SetDefault("QUOTE_TIMEOUT", "10s")

	v.SetDefault("DB_DRIVER", db.DriverSQLite)
	v.SetDefault("DATABASE_PATH", "data/stock-tracker.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "stock_tracker")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_EVENTS_CHANNEL", redis.DefaultEventsChannel)
	v.SetDefault("ALERT_CACHE_TTL", "1m")

	v.SetDefault("TWELVE_DATA_API_KEY", "")
	v.SetDefault("TWELVE_DATA_BASE_URL", twelvedata.DefaultBaseURL)
	v.SetDefault("QUOTE_RATE_LIMIT_PER_MIN", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
}

// Load は.envを読み込んだ上で環境変数から設定を構築し、検証します。
// .envが存在しない場合は環境変数のみを使用します。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded, using environment variables", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:         v.GetString("PORT"),
		ClientOrigin: strings.TrimSpace(v.GetString("CLIENT_ORIGIN")),
		Poll: PollConfig{
			Interval:     time.Duration(v.GetInt64("POLL_INTERVAL_MS")) * time.Millisecond,
			SkipOverlap:  v.GetBool("POLL_SKIP_OVERLAP"),
			QuoteTimeout: v.GetDuration("QUOTE_TIMEOUT"),
		},
		DB: db.Config{
			Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
			Path:          v.GetString("DATABASE_PATH"),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			Name:          v.GetString("DB_NAME"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			RunMigrations: v.GetBool("RUN_MIGRATIONS"),
		},
		Redis: RedisConfig{
			Config: redis.Config{
				Host:     v.GetString("REDIS_HOST"),
				Port:     v.GetString("REDIS_PORT"),
				Password: v.GetString("REDIS_PASSWORD"),
			},
			EventsChannel: v.GetString("REDIS_EVENTS_CHANNEL"),
			AlertCacheTTL: v.GetDuration("ALERT_CACHE_TTL"),
		},
		TwelveData: twelvedata.Config{
			TwelveDataAPIKey: v.GetString("TWELVE_DATA_API_KEY"),
			BaseURL:          v.GetString("TWELVE_DATA_BASE_URL"),
		},
		RateLimitPerMin: v.GetInt("QUOTE_RATE_LIMIT_PER_MIN"),
		Log: logger.Config{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}
	cfg.TwelveData.Timeout = cfg.Poll.QuoteTimeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: POLL_INTERVAL_MS must be positive", ErrInvalidConfig)
	}
	if c.Poll.QuoteTimeout <= 0 {
		return fmt.Errorf("%w: QUOTE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	switch c.DB.Driver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("%w: DB_DRIVER %q: %w", ErrInvalidConfig, c.DB.Driver, db.ErrUnknownDriver)
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("%w: QUOTE_RATE_LIMIT_PER_MIN must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
