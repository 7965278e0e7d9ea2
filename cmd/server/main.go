package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"stock_tracker/internal/app/di"
	"stock_tracker/internal/app/router"
	"stock_tracker/internal/config"
	"stock_tracker/internal/feature/instruments/adapters"
	instrumenthandler "stock_tracker/internal/feature/instruments/transport/handler"
	instrumentsusecase "stock_tracker/internal/feature/instruments/usecase"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
	infradb "stock_tracker/internal/platform/db"
	"stock_tracker/internal/platform/logger"
	"stock_tracker/internal/platform/notify"
	infraredis "stock_tracker/internal/platform/redis"
	"stock_tracker/internal/platform/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	_, closeLog := logger.New(cfg.Log)
	defer func() { _ = closeLog() }()

	// db
	db, err := infradb.Open(cfg.DB)
	if err != nil {
		return err
	}

	// Redis
	var rdb *redisv9.Client
	if cfg.RedisEnabled() {
		if tmp, err := infraredis.NewRedisClient(cfg.Redis.Config); err != nil {
			slog.Warn("Redis unavailable. Running without cache and event relay.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	// 通知
	hub := notify.NewHub()
	gateway := websocket.NewGateway(hub, cfg.ClientOrigin)
	defer gateway.Close()
	if rdb != nil {
		relay := infraredis.NewEventRelay(hub, rdb, cfg.Redis.EventsChannel)
		defer relay.Close()
	}

	// Repository
	alerts := di.NewAlertStore(rdb, db, cfg.Redis.AlertCacheTTL)
	instruments := di.NewInstrumentStore(db, alerts)
	monitorRepo := adapters.NewInstrumentRepository(db)

	if cfg.TwelveData.TwelveDataAPIKey == "" {
		slog.Warn("TWELVE_DATA_API_KEY is not set. Quote requests will fail.")
	}
	quotes := di.NewQuoteSource(cfg.TwelveData, cfg.RateLimitPerMin)

	// Usecase
	instrumentsUC := instrumentsusecase.NewInstrumentUsecase(instruments, alerts, quotes, hub)
	monitor := monitorusecase.NewPriceMonitor(monitorRepo, alerts, quotes, hub, cfg.Poll.QuoteTimeout)
	scheduler := monitorusecase.NewScheduler(monitor, monitorusecase.WithSkipOverlapping(cfg.Poll.SkipOverlap))

	// Handler / ルータ生成
	r := router.NewRouter(instrumenthandler.NewInstrumentHandler(instrumentsUC), gateway, cfg.ClientOrigin)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := scheduler.Start(cfg.Poll.Interval); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "poll_interval", cfg.Poll.Interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		scheduler.Stop()
		return err
	}

	// 監視ループを先に止めてからHTTPサーバーを閉じる
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	// 実行中のサイクルの書き込みと配信を終えてからゲートウェイとRedisを閉じる
	if err := scheduler.Wait(shutdownCtx); err != nil {
		slog.Warn("in-flight polling cycle did not finish before shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
