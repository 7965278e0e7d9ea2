// Package handler はinstrumentsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"stock_tracker/internal/api"
	"stock_tracker/internal/feature/instruments/domain/entity"
	"stock_tracker/internal/feature/instruments/transport/http/dto"
)

// InstrumentUsecase は銘柄操作のユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type InstrumentUsecase interface {
	List(ctx context.Context) ([]entity.Instrument, error)
	Get(ctx context.Context, id uint) (*entity.Instrument, error)
	Create(ctx context.Context, symbol string, alarmPrice float64, direction entity.Direction) (*entity.Instrument, error)
	UpdateAlarm(ctx context.Context, id uint, update entity.AlarmUpdate) (*entity.Instrument, error)
	Delete(ctx context.Context, id uint) error
	RecentAlerts(ctx context.Context, limit int) ([]entity.AlertRecord, error)
}

// InstrumentHandler は銘柄とアラート履歴のHTTPリクエストを処理します。
type InstrumentHandler struct {
	uc InstrumentUsecase
}

// NewInstrumentHandler は指定されたusecaseでInstrumentHandlerを生成します。
func NewInstrumentHandler(uc InstrumentUsecase) *InstrumentHandler {
	return &InstrumentHandler{uc: uc}
}

// List は追跡中の全銘柄を返します。
//
// GET /api/stocks
func (h *InstrumentHandler) List(c *gin.Context) {
	list, err := h.uc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromInstruments(list))
}

// Get は指定IDの銘柄を返します。
//
// GET /api/stocks/:id
func (h *InstrumentHandler) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	inst, err := h.uc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromInstrument(*inst))
}

// Create は銘柄の追跡を開始します。
// - バリデーションエラー時は400
// - 重複時は409
// - 初回クオート取得失敗時は502
// - 成功時は201
//
// POST /api/stocks
func (h *InstrumentHandler) Create(c *gin.Context) {
	var req dto.CreateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("create instrument validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("symbol and alarmPrice are required"))
		return
	}

	direction := entity.DirectionAbove
	if req.Direction != "" {
		d, err := entity.ParseDirection(req.Direction)
		if err != nil {
			writeError(c, err)
			return
		}
		direction = d
	}

	inst, err := h.uc.Create(c.Request.Context(), req.Symbol, *req.AlarmPrice, direction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.FromInstrument(*inst))
}

// UpdateAlarm はアラーム価格と方向を部分更新します。
//
// PATCH /api/stocks/:id
func (h *InstrumentHandler) UpdateAlarm(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	var req dto.UpdateAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("update alarm validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("invalid request"))
		return
	}

	update := entity.AlarmUpdate{AlarmPrice: req.AlarmPrice}
	if req.Direction != nil {
		d, err := entity.ParseDirection(*req.Direction)
		if err != nil {
			writeError(c, err)
			return
		}
		update.Direction = &d
	}

	inst, err := h.uc.UpdateAlarm(c.Request.Context(), id, update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromInstrument(*inst))
}

// Delete は銘柄とそのアラート履歴を削除します。
//
// DELETE /api/stocks/:id
func (h *InstrumentHandler) Delete(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecentAlerts は直近のアラートを新しい順に返します。
// limitが数値でない場合は0を渡し、デフォルト値への変換はusecaseで行います。
//
// GET /api/stocks/notifications/recent?limit=50
func (h *InstrumentHandler) RecentAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	alerts, err := h.uc.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromAlertRecords(alerts))
}

// bindID parses the :id path parameter. It writes a 400 and returns false on failure.
func bindID(c *gin.Context) (uint, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse("invalid id"))
		return 0, false
	}
	return uint(id), true
}

// writeError はドメインエラーをHTTPステータスに変換して返します。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, entity.ErrInstrumentNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, entity.ErrDuplicateSymbol):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, entity.ErrInvalidSymbol),
		errors.Is(err, entity.ErrInvalidAlarmPrice),
		errors.Is(err, entity.ErrInvalidDirection),
		errors.Is(err, entity.ErrNoFieldsToUpdate):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrQuoteUnavailable):
		status, msg = http.StatusBadGateway, err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, api.NewErrorResponse(msg))
}
