// Package db はgormによるデータベース接続の初期化を提供します。
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_tracker/internal/feature/instruments/adapters"
)

const (
	// DriverSQLite is the embedded default.
	DriverSQLite = "sqlite"
	// DriverPostgres connects to an external PostgreSQL server.
	DriverPostgres = "postgres"

	retryInterval         = 3 * time.Second
	defaultConnectTimeout = 60 * time.Second
)

// ErrUnknownDriver is returned for a driver other than sqlite or postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

// Config はデータベース接続設定です。
type Config struct {
	Driver         string
	Path           string // sqlite only
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	RunMigrations  bool
	ConnectTimeout time.Duration
}

// Opener opens a gorm connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN は設定からドライバ毎のDSN文字列を生成します。
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverPostgres:
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslmode)
	default:
		if cfg.Path == ":memory:" {
			return cfg.Path
		}
		return cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}
}

// ConnectWithRetry はtimeoutに達するまで3秒毎に接続を再試行します。
// 期限を超えてスリープすることはありません。
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "remaining", remaining.Round(time.Millisecond))
		time.Sleep(min(retryInterval, remaining))
	}
}

// Open はドライバに応じてDBへ接続し、必要であればマイグレーションを実行します。
func Open(cfg Config) (*gorm.DB, error) {
	opener, err := openerFor(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, opener)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// SQLiteは同時書き込みができないため接続を1本に絞る
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if cfg.RunMigrations {
		if err := db.AutoMigrate(adapters.Models()...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	slog.Info("database connected", "driver", cfg.Driver, "migrated", cfg.RunMigrations)
	return db, nil
}

func openerFor(cfg Config) (Opener, error) {
	gcfg := &gorm.Config{}
	switch cfg.Driver {
	case DriverSQLite:
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), gcfg) }, nil
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(postgres.Open(dsn), gcfg) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory %s: %w", dir, err)
	}
	return nil
}
