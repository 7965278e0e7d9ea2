// Package dto はinstrumentsフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// CreateInstrumentRequest はPOST /api/stocksのリクエストボディです。
// directionは省略時aboveとして扱います。
type CreateInstrumentRequest struct {
	Symbol     string   `json:"symbol" binding:"required"`
	AlarmPrice *float64 `json:"alarmPrice" binding:"required"`
	Direction  string   `json:"direction"`
}

// UpdateAlarmRequest はPATCH /api/stocks/:idのリクエストボディです。
// 少なくとも一つのフィールドが必要です。
type UpdateAlarmRequest struct {
	AlarmPrice *float64 `json:"alarmPrice"`
	Direction  *string  `json:"direction"`
}
