package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"stock_tracker/internal/feature/instruments/domain/entity"
	"stock_tracker/internal/feature/instruments/usecase"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
)

// instrumentGorm はInstrumentRepositoryのgorm実装です。
// 単一行の更新はすべて1つのUPDATE文で行われるため、行単位でアトミックです。
type instrumentGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ usecase.InstrumentRepository        = (*instrumentGorm)(nil)
	_ monitorusecase.InstrumentRepository = (*instrumentGorm)(nil)
)

// NewInstrumentRepository は指定されたDB接続でinstrumentGormの新しいインスタンスを生成します。
func NewInstrumentRepository(db *gorm.DB) *instrumentGorm {
	return &instrumentGorm{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// List はsymbol順にすべての銘柄を返します。
func (r *instrumentGorm) List(ctx context.Context) ([]entity.Instrument, error) {
	var rows []InstrumentModel
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// FindByID はIDで銘柄を検索します。
func (r *instrumentGorm) FindByID(ctx context.Context, id uint) (*entity.Instrument, error) {
	return r.first(ctx, "id = ?", id)
}

// FindBySymbol はシンボルで銘柄を検索します。
func (r *instrumentGorm) FindBySymbol(ctx context.Context, symbol string) (*entity.Instrument, error) {
	return r.first(ctx, "symbol = ?", symbol)
}

func (r *instrumentGorm) first(ctx context.Context, query string, arg any) (*entity.Instrument, error) {
	var m InstrumentModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrInstrumentNotFound
		}
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

// Create は新しい銘柄を登録します。シンボル重複時はErrDuplicateSymbolを返します。
func (r *instrumentGorm) Create(ctx context.Context, in entity.NewInstrument) (*entity.Instrument, error) {
	now := r.now()
	m := InstrumentModel{
		Symbol:         in.Symbol,
		DisplayName:    in.DisplayName,
		AlarmPrice:     in.AlarmPrice,
		AlarmDirection: string(in.AlarmDirection),
		LastPrice:      in.InitialPrice,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, entity.ErrDuplicateSymbol
		}
		return nil, err
	}
	e := m.toEntity()
	return &e, nil
}

// UpdateAlarm はアラーム価格・方向のうち指定されたフィールドのみを更新します。
func (r *instrumentGorm) UpdateAlarm(ctx context.Context, id uint, update entity.AlarmUpdate) (*entity.Instrument, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	fields := map[string]any{"updated_at": r.now()}
	if update.AlarmPrice != nil {
		fields["alarm_price"] = *update.AlarmPrice
	}
	if update.Direction != nil {
		fields["alarm_direction"] = string(*update.Direction)
	}

	res := r.db.WithContext(ctx).Model(&InstrumentModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, entity.ErrInstrumentNotFound
	}
	return r.FindByID(ctx, id)
}

// UpdateLastPrice は最新価格を保存します。
func (r *instrumentGorm) UpdateLastPrice(ctx context.Context, id uint, price float64) error {
	res := r.db.WithContext(ctx).Model(&InstrumentModel{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"last_price": price, "updated_at": r.now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrInstrumentNotFound
	}
	return nil
}

// UpdateLastAlert は最終アラート時刻を現在時刻に更新します。updated_atは変更しません。
func (r *instrumentGorm) UpdateLastAlert(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&InstrumentModel{}).Where("id = ?", id).
		UpdateColumn("last_alert_at", r.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrInstrumentNotFound
	}
	return nil
}

// Delete は銘柄とそのアラート履歴を同一トランザクションで削除します。
func (r *instrumentGorm) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stock_id = ?", id).Delete(&AlertModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&InstrumentModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return entity.ErrInstrumentNotFound
		}
		return nil
	})
}
