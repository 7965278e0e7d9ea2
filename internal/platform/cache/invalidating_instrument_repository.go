package cache

import (
	"context"

	"stock_tracker/internal/feature/instruments/usecase"
)

// Invalidator drops cached data.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidatingInstrumentRepository invalidates the alert cache after an instrument is deleted,
// since deletion cascades to its alert history.
type InvalidatingInstrumentRepository struct {
	usecase.InstrumentRepository
	alerts Invalidator
}

// NewInvalidatingInstrumentRepository wraps inner so that Delete also invalidates alerts.
func NewInvalidatingInstrumentRepository(inner usecase.InstrumentRepository, alerts Invalidator) *InvalidatingInstrumentRepository {
	return &InvalidatingInstrumentRepository{InstrumentRepository: inner, alerts: alerts}
}

// Delete removes the instrument and then invalidates the alert cache.
func (r *InvalidatingInstrumentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.InstrumentRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.alerts.Invalidate(ctx)
	return nil
}
