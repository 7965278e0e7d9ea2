package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stock_tracker/internal/feature/instruments/domain/entity"
	"stock_tracker/internal/feature/instruments/usecase"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
)

// alertGorm is the append-only alert history backed by gorm.
type alertGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ usecase.AlertRepository        = (*alertGorm)(nil)
	_ monitorusecase.AlertRepository = (*alertGorm)(nil)
)

// NewAlertRepository creates an alert repository on the given connection.
func NewAlertRepository(db *gorm.DB) *alertGorm {
	return &alertGorm{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Append stores a new alert and returns it with its generated id and timestamp.
func (r *alertGorm) Append(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error) {
	m := AlertModel{
		StockID:      instrumentID,
		Message:      message,
		TriggerPrice: triggerPrice,
		TriggeredAt:  r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

// ListRecent returns up to limit alerts, newest first.
func (r *alertGorm) ListRecent(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	var rows []AlertModel
	q := r.db.WithContext(ctx).Order("triggered_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.AlertRecord, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}
