// Package ratelimiter は外部API呼び出しの頻度制限を提供します。
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiterは、API呼び出しなどの操作の頻度を制限します。
// interval あたり limit 回までのバーストを許し、それ以降は均等な間隔でトークンを補充します。
type RateLimiter struct {
	limiter *rate.Limiter // nil の場合は無制限
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// limit が0以下の場合は制限しません。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	if limit <= 0 || interval <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit)}
}

// Waitはトークンが得られるまで待機します。ctx がキャンセルされた場合はそのエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}

// Unlimited reports whether the limiter never waits.
func (rl *RateLimiter) Unlimited() bool {
	return rl.limiter == nil
}
