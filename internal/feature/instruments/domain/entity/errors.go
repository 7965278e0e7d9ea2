package entity

import "errors"

// Domain errors for the instruments feature.
// Upper layers match them with errors.Is and map them to transport-level responses.
var (
	// ErrInstrumentNotFound is returned when no instrument matches the given id or symbol.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrDuplicateSymbol is returned when creating an instrument whose symbol is already tracked.
	ErrDuplicateSymbol = errors.New("symbol already tracked")

	// ErrQuoteUnavailable is returned when the quote source cannot supply a numeric price.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrInvalidAlarmPrice is returned when the alarm price is not positive.
	ErrInvalidAlarmPrice = errors.New("alarm price must be positive")

	// ErrInvalidDirection is returned for directions other than above/below.
	ErrInvalidDirection = errors.New("direction must be above or below")

	// ErrNoFieldsToUpdate is returned when an alarm update carries no fields.
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// ErrInvalidSymbol is returned when the symbol is empty after normalization.
	ErrInvalidSymbol = errors.New("symbol is required")
)
