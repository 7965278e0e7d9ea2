// Package externalapi holds decorators shared by the external market data clients.
package externalapi

import (
	"context"
	"fmt"

	"stock_tracker/internal/feature/instruments/domain/entity"
	"stock_tracker/internal/shared/ratelimiter"
)

// QuoteSource looks up the current quote for a symbol.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*entity.Quote, error)
}

// RateLimitedQuoteSource はプロバイダのレート制限内に収まるよう呼び出しを待機させます。
// 待機中にctxが期限切れになった場合はリクエストを送らずにエラーを返します。
type RateLimitedQuoteSource struct {
	inner   QuoteSource
	limiter ratelimiter.RateLimiterInterface
}

// NewRateLimitedQuoteSource wraps inner with limiter.
func NewRateLimitedQuoteSource(inner QuoteSource, limiter ratelimiter.RateLimiterInterface) *RateLimitedQuoteSource {
	return &RateLimitedQuoteSource{inner: inner, limiter: limiter}
}

// GetQuote waits for the limiter and then delegates.
func (s *RateLimitedQuoteSource) GetQuote(ctx context.Context, symbol string) (*entity.Quote, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", symbol, err)
	}
	return s.inner.GetQuote(ctx, symbol)
}
