package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quantbyte/rotor/internal/market"
)

// RedisCache shares fetched market data across processes. Errors degrade to
// cache misses: redis being down must never take the strategy down with it.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps a redis client with a fixed TTL
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func seriesKey(symbol string, lookback int) string {
	return fmt.Sprintf("rotor:series:%s:%d", symbol, lookback)
}

func priceKey(symbol string) string {
	return "rotor:price:" + symbol
}

// GetSeries returns a cached series, false on miss or any redis error
func (c *RedisCache) GetSeries(ctx context.Context, symbol string, lookback int) (market.Series, bool) {
	raw, err := c.client.Get(ctx, seriesKey(symbol, lookback)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("redis series read failed")
		}
		return nil, false
	}
	var series market.Series
	if err := json.Unmarshal(raw, &series); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("redis series decode failed")
		return nil, false
	}
	return series, true
}

// SetSeries stores a series, logging but not propagating failures
func (c *RedisCache) SetSeries(ctx context.Context, symbol string, lookback int, series market.Series) {
	raw, err := json.Marshal(series)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("redis series encode failed")
		return
	}
	if err := c.client.Set(ctx, seriesKey(symbol, lookback), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("redis series write failed")
	}
}

// GetPrice returns a cached price, false on miss or any redis error
func (c *RedisCache) GetPrice(ctx context.Context, symbol string) (float64, bool) {
	price, err := c.client.Get(ctx, priceKey(symbol)).Float64()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("redis price read failed")
		}
		return 0, false
	}
	return price, true
}

// SetPrice stores a price, logging but not propagating failures
func (c *RedisCache) SetPrice(ctx context.Context, symbol string, price float64) {
	if err := c.client.Set(ctx, priceKey(symbol), price, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("redis price write failed")
	}
}

// RedisSeriesProvider layers the shared redis cache over an upstream series
// provider
type RedisSeriesProvider struct {
	cache    *RedisCache
	upstream SeriesProvider
}

// NewRedisSeriesProvider wraps upstream with the shared cache
func NewRedisSeriesProvider(cache *RedisCache, upstream SeriesProvider) *RedisSeriesProvider {
	return &RedisSeriesProvider{cache: cache, upstream: upstream}
}

func (p *RedisSeriesProvider) Series(ctx context.Context, symbol string, lookback int) (market.Series, error) {
	if series, ok := p.cache.GetSeries(ctx, symbol, lookback); ok {
		return series, nil
	}
	series, err := p.upstream.Series(ctx, symbol, lookback)
	if err != nil {
		return nil, err
	}
	p.cache.SetSeries(ctx, symbol, lookback, series)
	return series, nil
}
