package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"stock_tracker/internal/app/di"
	"stock_tracker/internal/config"
	"stock_tracker/internal/feature/instruments/adapters"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
	infradb "stock_tracker/internal/platform/db"
	"stock_tracker/internal/platform/logger"
	"stock_tracker/internal/platform/notify"
	infraredis "stock_tracker/internal/platform/redis"
)

// poll は監視サイクルを1回だけ実行して終了します。外部cronからの起動を想定しています。
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	_, closeLog := logger.New(cfg.Log)
	defer func() { _ = closeLog() }()

	db, err := infradb.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return 1
	}

	hub := notify.NewHub()
	alerts := di.NewAlertStore(nil, db, 0)
	if cfg.RedisEnabled() {
		if rdb, err := infraredis.NewRedisClient(cfg.Redis.Config); err != nil {
			slog.Warn("Redis unavailable. Events will not be relayed.", "error", err)
		} else {
			defer func() { _ = rdb.Close() }()
			relay := infraredis.NewEventRelay(hub, rdb, cfg.Redis.EventsChannel)
			defer relay.Close()
			alerts = di.NewAlertStore(rdb, db, cfg.Redis.AlertCacheTTL)
		}
	}

	quotes := di.NewQuoteSource(cfg.TwelveData, cfg.RateLimitPerMin)
	monitor := monitorusecase.NewPriceMonitor(adapters.NewInstrumentRepository(db), alerts, quotes, hub, cfg.Poll.QuoteTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := monitor.RunCycle(ctx)
	if err != nil {
		slog.Error("poll cycle failed", "error", err)
		return 1
	}
	slog.Info("poll ok", "total", res.Total, "updated", res.Updated, "failed", res.Failed, "alerts", res.Alerts)
	return 0
}
