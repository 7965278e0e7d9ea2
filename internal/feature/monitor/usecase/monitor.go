// Package usecase implements the polling-and-alerting engine: crossing detection,
// the per-cycle fan-out over all tracked instruments, and the periodic scheduler.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// DefaultFetchTimeout is used when no per-fetch timeout is configured.
const DefaultFetchTimeout = 10 * time.Second

// InstrumentRepository is the part of the instrument store the engine consumes.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	List(ctx context.Context) ([]entity.Instrument, error)
	FindByID(ctx context.Context, id uint) (*entity.Instrument, error)
	UpdateLastPrice(ctx context.Context, id uint, price float64) error
	UpdateLastAlert(ctx context.Context, id uint) error
}

// AlertRepository はアラート履歴の書き込み側です。
type AlertRepository interface {
	Append(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error)
}

// QuoteSource looks up the current quote for a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*entity.Quote, error)
}

// Notifier publishes price updates and alerts to observers.
type Notifier interface {
	BroadcastInstrument(inst entity.Instrument)
	BroadcastAlert(ev entity.AlertEvent)
}

// CycleResult summarizes one polling cycle.
type CycleResult struct {
	Total   int // instruments in the snapshot
	Updated int // instruments whose price was persisted
	Failed  int // instruments whose processing returned an error
	Alerts  int // alerts fired
}

// PriceMonitor refreshes every tracked instrument once per cycle and fires an alert
// for each detected crossing.
type PriceMonitor struct {
	instruments  InstrumentRepository
	alerts       AlertRepository
	quotes       QuoteSource
	notifier     Notifier
	fetchTimeout time.Duration
}

// NewPriceMonitor creates a new PriceMonitor. A non-positive fetchTimeout falls back to DefaultFetchTimeout.
func NewPriceMonitor(instruments InstrumentRepository, alerts AlertRepository, quotes QuoteSource, notifier Notifier, fetchTimeout time.Duration) *PriceMonitor {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &PriceMonitor{
		instruments:  instruments,
		alerts:       alerts,
		quotes:       quotes,
		notifier:     notifier,
		fetchTimeout: fetchTimeout,
	}
}

type outcome struct {
	updated bool
	alerted bool
	err     error
}

// RunCycle は全銘柄のスナップショットを取得し、銘柄ごとに並行して価格更新とアラート判定を行います。
// 個別銘柄のエラーはログに出力して集計するのみで、他の銘柄の処理には影響しません。
// スナップショット取得に失敗した場合のみエラーを返します。
func (m *PriceMonitor) RunCycle(ctx context.Context) (CycleResult, error) {
	snapshot, err := m.instruments.List(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("snapshot instruments: %w", err)
	}

	outcomes := make([]outcome, len(snapshot))
	var wg sync.WaitGroup
	for i := range snapshot {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = m.processInstrument(ctx, snapshot[i])
		}(i)
	}
	wg.Wait()

	res := CycleResult{Total: len(snapshot)}
	for i, o := range outcomes {
		if o.updated {
			res.Updated++
		}
		if o.alerted {
			res.Alerts++
		}
		if o.err != nil {
			res.Failed++
			slog.Error("failed to refresh instrument", "symbol", snapshot[i].Symbol, "id", snapshot[i].ID, "error", o.err)
		}
	}
	return res, nil
}

// processInstrument handles one instrument. inst is the pre-update snapshot: its LastPrice
// and alarm config are what the crossing is evaluated against.
func (m *PriceMonitor) processInstrument(ctx context.Context, inst entity.Instrument) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("panic: %v", r)
		}
	}()

	quote, err := m.fetchQuote(ctx, inst.Symbol)
	if err != nil {
		return outcome{err: fmt.Errorf("fetch quote: %w", err)}
	}
	price := quote.Price

	if err := m.instruments.UpdateLastPrice(ctx, inst.ID, price); err != nil {
		if errors.Is(err, entity.ErrInstrumentNotFound) {
			// サイクル中に削除された銘柄は静かにスキップする
			return outcome{}
		}
		return outcome{err: fmt.Errorf("update last price: %w", err)}
	}
	o.updated = true

	current, err := m.instruments.FindByID(ctx, inst.ID)
	if err != nil {
		if errors.Is(err, entity.ErrInstrumentNotFound) {
			return o
		}
		o.err = fmt.Errorf("reload instrument: %w", err)
		return o
	}
	m.notifier.BroadcastInstrument(*current)

	if !HasCrossed(inst.LastPrice, price, inst.AlarmPrice, inst.AlarmDirection) {
		return o
	}

	msg := FormatAlertMessage(inst.Symbol, inst.AlarmDirection, inst.AlarmPrice, price)
	rec, err := m.alerts.Append(ctx, inst.ID, msg, price)
	if err != nil {
		o.err = fmt.Errorf("append alert: %w", err)
		return o
	}
	if err := m.instruments.UpdateLastAlert(ctx, inst.ID); err != nil {
		// 履歴は記録済みのため通知は継続する
		slog.Warn("failed to update last alert timestamp", "symbol", inst.Symbol, "error", err)
	}

	m.notifier.BroadcastAlert(entity.NewAlertEvent(*rec, inst))
	o.alerted = true
	slog.Info("alert triggered", "symbol", inst.Symbol, "direction", inst.AlarmDirection, "alarm_price", inst.AlarmPrice, "price", price)
	return o
}

func (m *PriceMonitor) fetchQuote(ctx context.Context, symbol string) (*entity.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()
	return m.quotes.GetQuote(ctx, symbol)
}
