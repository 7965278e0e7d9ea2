// Package api defines the JSON wire types shared by the REST API, the WebSocket gateway
// and the Redis event relay.
package api

import "time"

// ErrorResponse はエラー時の共通レスポンスです。
// Message は error.message を読むクライアント向けに Error と同じ文言を持ちます。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewErrorResponse builds an ErrorResponse carrying msg in both fields.
func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Message: msg}
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// InstrumentResponse は銘柄の表現です。
type InstrumentResponse struct {
	ID             uint       `json:"id"`
	Symbol         string     `json:"symbol"`
	DisplayName    string     `json:"display_name"`
	AlarmPrice     float64    `json:"alarm_price"`
	AlarmDirection string     `json:"alarm_direction"`
	LastPrice      *float64   `json:"last_price"`
	LastAlertAt    *time.Time `json:"last_alert_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AlertStock is the instrument snapshot embedded in an alert.
type AlertStock struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
}

// AlertResponse はアラート履歴の表現です。Stockはブロードキャスト時のみ設定されます。
type AlertResponse struct {
	ID           uint        `json:"id"`
	StockID      uint        `json:"stock_id"`
	Message      string      `json:"message"`
	TriggerPrice float64     `json:"trigger_price"`
	TriggeredAt  time.Time   `json:"triggered_at"`
	Stock        *AlertStock `json:"stock,omitempty"`
}

// EventEnvelope wraps every pushed event.
type EventEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
