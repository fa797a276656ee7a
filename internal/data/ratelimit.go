package data

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/quantbyte/rotor/internal/market"
)

// RateLimitedSeriesProvider paces upstream calls with a token bucket. Wait
// blocks until a token is available or the context is done.
type RateLimitedSeriesProvider struct {
	limiter  *rate.Limiter
	upstream SeriesProvider
}

// NewRateLimitedSeriesProvider allows rps requests per second with the given
// burst
func NewRateLimitedSeriesProvider(rps float64, burst int, upstream SeriesProvider) *RateLimitedSeriesProvider {
	return &RateLimitedSeriesProvider{
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		upstream: upstream,
	}
}

func (p *RateLimitedSeriesProvider) Series(ctx context.Context, symbol string, lookback int) (market.Series, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.upstream.Series(ctx, symbol, lookback)
}

// RateLimitedPriceProvider paces upstream price calls with a token bucket
type RateLimitedPriceProvider struct {
	limiter  *rate.Limiter
	upstream PriceProvider
}

// NewRateLimitedPriceProvider allows rps requests per second with the given
// burst
func NewRateLimitedPriceProvider(rps float64, burst int, upstream PriceProvider) *RateLimitedPriceProvider {
	return &RateLimitedPriceProvider{
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		upstream: upstream,
	}
}

func (p *RateLimitedPriceProvider) Price(ctx context.Context, symbol string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.upstream.Price(ctx, symbol)
}
