// Package adapters provides the gorm-backed repositories for the instruments feature.
package adapters

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// InstrumentModel is the row layout of the stocks table.
type InstrumentModel struct {
	ID             uint       `gorm:"primaryKey"`
	Symbol         string     `gorm:"size:32;not null;uniqueIndex"`
	DisplayName    string     `gorm:"size:255;not null"`
	AlarmPrice     float64    `gorm:"not null"`
	AlarmDirection string     `gorm:"size:8;not null"`
	LastPrice      *float64
	LastAlertAt    *time.Time
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`

	Alerts []AlertModel `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE"`
}

func (InstrumentModel) TableName() string {
	return "stocks"
}

// AlertModel is the row layout of the notifications table.
type AlertModel struct {
	ID           uint      `gorm:"primaryKey"`
	StockID      uint      `gorm:"not null;index"`
	Message      string    `gorm:"size:512;not null"`
	TriggerPrice float64   `gorm:"not null"`
	TriggeredAt  time.Time `gorm:"not null;index"`
}

func (AlertModel) TableName() string {
	return "notifications"
}

// Models lists every model for AutoMigrate.
func Models() []any {
	return []any{&InstrumentModel{}, &AlertModel{}}
}

func (m InstrumentModel) toEntity() entity.Instrument {
	return entity.Instrument{
		ID:             m.ID,
		Symbol:         m.Symbol,
		DisplayName:    m.DisplayName,
		AlarmPrice:     m.AlarmPrice,
		AlarmDirection: entity.Direction(m.AlarmDirection),
		LastPrice:      m.LastPrice,
		LastAlertAt:    m.LastAlertAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (m AlertModel) toEntity() entity.AlertRecord {
	return entity.AlertRecord{
		ID:           m.ID,
		InstrumentID: m.StockID,
		Message:      m.Message,
		TriggerPrice: m.TriggerPrice,
		TriggeredAt:  m.TriggeredAt,
	}
}

// isUniqueViolation reports whether err is a unique-constraint failure from any supported driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
