package entity

import "time"

// AlertRecord is an immutable log entry written once per detected crossing.
type AlertRecord struct {
	ID           uint
	InstrumentID uint
	Message      string
	TriggerPrice float64
	TriggeredAt  time.Time
}

// AlertInstrument is the instrument snapshot copied onto an alert at creation time.
type AlertInstrument struct {
	Symbol      string
	DisplayName string
}

// AlertEvent is the payload broadcast when an alert fires.
type AlertEvent struct {
	AlertRecord
	Instrument AlertInstrument
}

// NewAlertEvent pairs a stored alert with a copy of the instrument's symbol and name.
func NewAlertEvent(rec AlertRecord, inst Instrument) AlertEvent {
	return AlertEvent{
		AlertRecord: rec,
		Instrument: AlertInstrument{
			Symbol:      inst.Symbol,
			DisplayName: inst.DisplayName,
		},
	}
}
