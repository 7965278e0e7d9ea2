// Package entity defines the domain models for the instruments feature.
package entity

import (
	"strings"
	"time"
)

// Direction is the side of the alarm price that arms an alert.
type Direction string

const (
	// DirectionAbove triggers when the price moves from below the alarm price to at-or-above it.
	DirectionAbove Direction = "above"
	// DirectionBelow triggers when the price moves from above the alarm price to at-or-below it.
	DirectionBelow Direction = "below"
)

// ParseDirection converts user input into a Direction. The match is case-insensitive.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", ErrInvalidDirection
	}
	return d, nil
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionAbove || d == DirectionBelow
}

// Phrase returns the wording used in alert messages.
func (d Direction) Phrase() string {
	switch d {
	case DirectionAbove:
		return "above"
	case DirectionBelow:
		return "below"
	default:
		return string(d)
	}
}

// Instrument is a tracked symbol together with its alarm configuration.
type Instrument struct {
	ID             uint
	Symbol         string // upper-case, unique (e.g. "AAPL", "7203.T")
	DisplayName    string
	AlarmPrice     float64
	AlarmDirection Direction
	LastPrice      *float64   // nil until the first successful quote
	LastAlertAt    *time.Time // nil until the first crossing
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInstrument holds the fields required to create an instrument.
type NewInstrument struct {
	Symbol         string
	DisplayName    string
	AlarmPrice     float64
	AlarmDirection Direction
	InitialPrice   *float64
}

// AlarmUpdate is a partial update of an instrument's alarm configuration.
// Nil fields are left unchanged.
type AlarmUpdate struct {
	AlarmPrice *float64
	Direction  *Direction
}

// IsEmpty reports whether the update carries no fields.
func (u AlarmUpdate) IsEmpty() bool {
	return u.AlarmPrice == nil && u.Direction == nil
}

// Validate checks the fields that are present.
func (u AlarmUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrNoFieldsToUpdate
	}
	if u.AlarmPrice != nil && *u.AlarmPrice <= 0 {
		return ErrInvalidAlarmPrice
	}
	if u.Direction != nil && !u.Direction.Valid() {
		return ErrInvalidDirection
	}
	return nil
}

// NormalizeSymbol trims and upper-cases a symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Quote is the latest market data for a symbol.
type Quote struct {
	Symbol      string
	DisplayName string
	Price       float64
}
