package usecase

import "stock_tracker/internal/feature/instruments/domain/entity"

// HasCrossed reports whether moving from previous to newPrice crosses the alarm price
// in the given direction. A nil previous price is treated as equal to newPrice, so the
// first observation of an instrument never fires.
//
// ABOVE fires on prev < alarm <= new, BELOW on prev > alarm >= new. Staying on the
// triggered side never fires again; returning and crossing again re-arms.
func HasCrossed(previous *float64, newPrice, alarmPrice float64, direction entity.Direction) bool {
	prev := newPrice
	if previous != nil {
		prev = *previous
	}

	switch direction {
	case entity.DirectionAbove:
		return prev < alarmPrice && newPrice >= alarmPrice
	case entity.DirectionBelow:
		return prev > alarmPrice && newPrice <= alarmPrice
	default:
		return false
	}
}
