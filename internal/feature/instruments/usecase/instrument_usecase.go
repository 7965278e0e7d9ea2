// Package usecase implements the CRUD business logic for tracked instruments.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

const (
	// DefaultRecentAlerts is the number of alerts returned when no limit is given.
	DefaultRecentAlerts = 50
	// MaxRecentAlerts caps the limit accepted from callers.
	MaxRecentAlerts = 500
)

// InstrumentRepository abstracts the persistence layer for instruments.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	List(ctx context.Context) ([]entity.Instrument, error)
	FindByID(ctx context.Context, id uint) (*entity.Instrument, error)
	FindBySymbol(ctx context.Context, symbol string) (*entity.Instrument, error)
	Create(ctx context.Context, in entity.NewInstrument) (*entity.Instrument, error)
	UpdateAlarm(ctx context.Context, id uint, update entity.AlarmUpdate) (*entity.Instrument, error)
	Delete(ctx context.Context, id uint) error
}

// AlertRepository is the read side of the alert history.
type AlertRepository interface {
	ListRecent(ctx context.Context, limit int) ([]entity.AlertRecord, error)
}

// QuoteSource looks up the current quote for a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*entity.Quote, error)
}

// Notifier publishes instrument state changes to observers.
type Notifier interface {
	BroadcastInstrument(inst entity.Instrument)
	BroadcastInstruments(list []entity.Instrument)
}

// InstrumentUsecase provides create/read/update/delete operations for tracked instruments.
// The polling engine picks changes up on its next cycle.
type InstrumentUsecase struct {
	instruments InstrumentRepository
	alerts      AlertRepository
	quotes      QuoteSource
	notifier    Notifier
}

// NewInstrumentUsecase creates a new InstrumentUsecase.
func NewInstrumentUsecase(instruments InstrumentRepository, alerts AlertRepository, quotes QuoteSource, notifier Notifier) *InstrumentUsecase {
	return &InstrumentUsecase{
		instruments: instruments,
		alerts:      alerts,
		quotes:      quotes,
		notifier:    notifier,
	}
}

// List returns all tracked instruments ordered by symbol.
func (u *InstrumentUsecase) List(ctx context.Context) ([]entity.Instrument, error) {
	return u.instruments.List(ctx)
}

// Get returns one instrument by id.
func (u *InstrumentUsecase) Get(ctx context.Context, id uint) (*entity.Instrument, error) {
	return u.instruments.FindByID(ctx, id)
}

// Create starts tracking a symbol. The symbol is normalized, checked for duplicates,
// and seeded with an initial quote so that the first poll has a previous price to compare against.
func (u *InstrumentUsecase) Create(ctx context.Context, symbol string, alarmPrice float64, direction entity.Direction) (*entity.Instrument, error) {
	symbol = entity.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, entity.ErrInvalidSymbol
	}
	if alarmPrice <= 0 {
		return nil, entity.ErrInvalidAlarmPrice
	}
	if direction == "" {
		direction = entity.DirectionAbove
	}
	if !direction.Valid() {
		return nil, entity.ErrInvalidDirection
	}

	existing, err := u.instruments.FindBySymbol(ctx, symbol)
	switch {
	case err == nil && existing != nil:
		return nil, entity.ErrDuplicateSymbol
	case err != nil && !errors.Is(err, entity.ErrInstrumentNotFound):
		return nil, err
	}

	quote, err := u.quotes.GetQuote(ctx, symbol)
	if err != nil {
		// 取得失敗は種類を問わずErrQuoteUnavailableとして扱う
		if !errors.Is(err, entity.ErrQuoteUnavailable) {
			err = fmt.Errorf("%w: %w", entity.ErrQuoteUnavailable, err)
		}
		return nil, fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	price := quote.Price

	created, err := u.instruments.Create(ctx, entity.NewInstrument{
		Symbol:         symbol,
		DisplayName:    quote.DisplayName,
		AlarmPrice:     alarmPrice,
		AlarmDirection: direction,
		InitialPrice:   &price,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("instrument created", "id", created.ID, "symbol", created.Symbol, "alarm_price", created.AlarmPrice, "direction", created.AlarmDirection)
	u.notifier.BroadcastInstrument(*created)
	return created, nil
}

// UpdateAlarm changes an instrument's alarm price and/or direction.
func (u *InstrumentUsecase) UpdateAlarm(ctx context.Context, id uint, update entity.AlarmUpdate) (*entity.Instrument, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	updated, err := u.instruments.UpdateAlarm(ctx, id, update)
	if err != nil {
		return nil, err
	}

	u.notifier.BroadcastInstrument(*updated)
	return updated, nil
}

// Delete stops tracking an instrument and removes its alert history.
// Observers receive the remaining list as a full refresh.
func (u *InstrumentUsecase) Delete(ctx context.Context, id uint) error {
	if _, err := u.instruments.FindByID(ctx, id); err != nil {
		return err
	}
	if err := u.instruments.Delete(ctx, id); err != nil {
		return err
	}

	remaining, err := u.instruments.List(ctx)
	if err != nil {
		// 削除自体は成功しているため、一覧の再配信失敗はログのみ
		slog.Error("failed to list instruments after delete", "id", id, "error", err)
		return nil
	}
	u.notifier.BroadcastInstruments(remaining)
	return nil
}

// RecentAlerts returns the most recent alerts, newest first.
func (u *InstrumentUsecase) RecentAlerts(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentAlerts
	}
	if limit > MaxRecentAlerts {
		limit = MaxRecentAlerts
	}
	return u.alerts.ListRecent(ctx, limit)
}
