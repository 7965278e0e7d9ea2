package api

import (
	"encoding/json"
	"fmt"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// FromInstrument converts an entity.Instrument into its wire form.
func FromInstrument(inst entity.Instrument) InstrumentResponse {
	return InstrumentResponse{
		ID:             inst.ID,
		Symbol:         inst.Symbol,
		DisplayName:    inst.DisplayName,
		AlarmPrice:     inst.AlarmPrice,
		AlarmDirection: string(inst.AlarmDirection),
		LastPrice:      inst.LastPrice,
		LastAlertAt:    inst.LastAlertAt,
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
	}
}

// FromInstruments converts a list. A nil list becomes an empty array on the wire.
func FromInstruments(list []entity.Instrument) []InstrumentResponse {
	out := make([]InstrumentResponse, 0, len(list))
	for _, inst := range list {
		out = append(out, FromInstrument(inst))
	}
	return out
}

// FromAlertRecord converts a stored alert without the instrument snapshot.
func FromAlertRecord(rec entity.AlertRecord) AlertResponse {
	return AlertResponse{
		ID:           rec.ID,
		StockID:      rec.InstrumentID,
		Message:      rec.Message,
		TriggerPrice: rec.TriggerPrice,
		TriggeredAt:  rec.TriggeredAt,
	}
}

// FromAlertRecords converts a list of stored alerts.
func FromAlertRecords(list []entity.AlertRecord) []AlertResponse {
	out := make([]AlertResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, FromAlertRecord(rec))
	}
	return out
}

// FromAlertEvent converts a broadcast alert including its instrument snapshot.
func FromAlertEvent(ev entity.AlertEvent) AlertResponse {
	out := FromAlertRecord(ev.AlertRecord)
	out.Stock = &AlertStock{Symbol: ev.Instrument.Symbol, DisplayName: ev.Instrument.DisplayName}
	return out
}

// EncodeEvent はイベント名とペイロードをエンベロープ形式のJSONに変換します。
// ペイロードはエンティティ型のまま渡し、ここでワイヤ形式に変換します。
func EncodeEvent(event string, payload any) ([]byte, error) {
	var data any
	switch p := payload.(type) {
	case entity.Instrument:
		data = FromInstrument(p)
	case []entity.Instrument:
		data = FromInstruments(p)
	case entity.AlertEvent:
		data = FromAlertEvent(p)
	default:
		return nil, fmt.Errorf("unsupported payload %T for event %s", payload, event)
	}
	return json.Marshal(EventEnvelope{Event: event, Data: data})
}
