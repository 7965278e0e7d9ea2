package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// FormatAlertMessage は通知メッセージを組み立てます。
// 例: "AAPL is now above target 100.00 (latest 101.00)"
func FormatAlertMessage(symbol string, direction entity.Direction, alarmPrice, latest float64) string {
	return fmt.Sprintf("%s is now %s target %s (latest %s)",
		symbol,
		direction.Phrase(),
		decimal.NewFromFloat(alarmPrice).StringFixed(2),
		decimal.NewFromFloat(latest).StringFixed(2),
	)
}
