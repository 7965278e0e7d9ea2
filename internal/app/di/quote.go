// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"stock_tracker/internal/platform/externalapi"
	"stock_tracker/internal/platform/externalapi/twelvedata"
	infrahttp "stock_tracker/internal/platform/http"
	"stock_tracker/internal/shared/ratelimiter"
)

// NewQuoteSource creates a Twelve Data quote client with a tuned HTTP client.
// When perMinute is positive, calls are throttled to that many per minute.
func NewQuoteSource(cfg twelvedata.Config, perMinute int) externalapi.QuoteSource {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	client := twelvedata.NewQuoteClient(cfg, httpClient)

	limiter := ratelimiter.NewRateLimiter(perMinute, time.Minute)
	if limiter.Unlimited() {
		return client
	}
	return externalapi.NewRateLimitedQuoteSource(client, limiter)
}
