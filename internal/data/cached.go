package data

import (
	"context"
	"fmt"

	"github.com/quantbyte/rotor/internal/market"
)

// CachedSeriesProvider consults a TTL cache before the upstream provider.
// Only successful fetches are cached.
type CachedSeriesProvider struct {
	cache    *TTLCache
	upstream SeriesProvider
}

// NewCachedSeriesProvider wraps upstream with the cache
func NewCachedSeriesProvider(cache *TTLCache, upstream SeriesProvider) *CachedSeriesProvider {
	return &CachedSeriesProvider{cache: cache, upstream: upstream}
}

func (p *CachedSeriesProvider) Series(ctx context.Context, symbol string, lookback int) (market.Series, error) {
	key := fmt.Sprintf("series:%s:%d", symbol, lookback)
	if v, ok := p.cache.Get(key); ok {
		return v.(market.Series), nil
	}
	series, err := p.upstream.Series(ctx, symbol, lookback)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, series)
	return series, nil
}

// CachedPriceProvider consults a TTL cache before the upstream provider
type CachedPriceProvider struct {
	cache    *TTLCache
	upstream PriceProvider
}

// NewCachedPriceProvider wraps upstream with the cache
func NewCachedPriceProvider(cache *TTLCache, upstream PriceProvider) *CachedPriceProvider {
	return &CachedPriceProvider{cache: cache, upstream: upstream}
}

func (p *CachedPriceProvider) Price(ctx context.Context, symbol string) (float64, error) {
	key := "price:" + symbol
	if v, ok := p.cache.Get(key); ok {
		return v.(float64), nil
	}
	price, err := p.upstream.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}
	p.cache.Set(key, price)
	return price, nil
}
