package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quantbyte/rotor/internal/backtest"
	"github.com/quantbyte/rotor/internal/catalyst"
	"github.com/quantbyte/rotor/internal/config"
	"github.com/quantbyte/rotor/internal/data"
	"github.com/quantbyte/rotor/internal/market"
	"github.com/quantbyte/rotor/internal/metrics"
	"github.com/quantbyte/rotor/internal/portfolio"
	"github.com/quantbyte/rotor/internal/scoring"
)

// historyProvider serves a CSV-backed feed through the provider interfaces,
// pinned to an as-of date so every consumer sees the same point in time
type historyProvider struct {
	feed *backtest.MemoryFeed
	asOf time.Time
}

func (p *historyProvider) Series(_ context.Context, symbol string, lookback int) (market.Series, error) {
	series, err := p.feed.SeriesUpTo(symbol, p.asOf)
	if err != nil {
		return nil, err
	}
	return series.Tail(lookback), nil
}

func (p *historyProvider) Price(_ context.Context, symbol string) (float64, error) {
	price, err := p.feed.PriceAt(symbol, p.asOf)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", data.ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// dataStack is the layered provider pipeline the commands share
type dataStack struct {
	fetcher *data.Fetcher
	cache   *data.TTLCache
}

// buildDataStack layers rate limiting, a circuit breaker, the optional
// shared redis cache, and the in-process TTL cache over the base provider
func buildDataStack(cfg *config.Config, feed *backtest.MemoryFeed, asOf time.Time) *dataStack {
	base := &historyProvider{feed: feed, asOf: asOf}

	var series data.SeriesProvider = data.NewRateLimitedSeriesProvider(
		cfg.Data.RateLimitPerSec, cfg.Data.RateLimitBurst, base)
	series = data.NewBreakerSeriesProvider("series", series)

	var prices data.PriceProvider = data.NewRateLimitedPriceProvider(
		cfg.Data.RateLimitPerSec, cfg.Data.RateLimitBurst, base)
	prices = data.NewBreakerPriceProvider("prices", prices)

	if cfg.Data.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Data.RedisAddr})
		shared := data.NewRedisCache(client, time.Duration(cfg.Data.RedisTTLSeconds)*time.Second)
		series = data.NewRedisSeriesProvider(shared, series)
	}

	ttl := time.Duration(cfg.Data.CacheTTLSeconds) * time.Second
	cache := data.NewTTLCache(cfg.Data.CacheCapacity, ttl)
	series = data.NewCachedSeriesProvider(cache, series)
	prices = data.NewCachedPriceProvider(cache, prices)

	return &dataStack{
		fetcher: data.NewFetcher(series, prices, cfg.Data.FetchWorkers),
		cache:   cache,
	}
}

// scanOutcome is one scored instrument with its catalyst profile
type scanOutcome struct {
	Score   scoring.Score     `json:"score"`
	Profile *catalyst.Profile `json:"profile"`
}

// runScanPipeline fetches, scans, and scores the universe, returning
// outcomes ordered by expected return descending and the fetched series
func runScanPipeline(ctx context.Context, cfg *config.Config, symbols []string, stack *dataStack) ([]scanOutcome, map[string]market.Series) {
	seriesMap := stack.fetcher.FetchSeries(ctx, symbols, cfg.Data.LookbackDays)

	scanner := catalyst.NewScanner()
	scorer := scoring.NewScorer(&cfg.Scoring)

	fetched := make([]string, 0, len(seriesMap))
	for symbol := range seriesMap {
		fetched = append(fetched, symbol)
	}
	sort.Strings(fetched)

	outcomes := make([]scanOutcome, 0, len(fetched))
	for _, symbol := range fetched {
		series := seriesMap[symbol]
		profile := scanner.Scan(series)
		outcomes = append(outcomes, scanOutcome{
			Score:   scorer.Score(symbol, series, profile, nil),
			Profile: profile,
		})
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		if outcomes[i].Score.ExpectedReturn != outcomes[j].Score.ExpectedReturn {
			return outcomes[i].Score.ExpectedReturn > outcomes[j].Score.ExpectedReturn
		}
		return outcomes[i].Score.Symbol < outcomes[j].Score.Symbol
	})
	return outcomes, seriesMap
}

// recordDataMetrics snapshots cache and fetch counters after a scan; the
// registry is per-process so snapshot adds are exact
func recordDataMetrics(registry *metrics.Registry, stack *dataStack, requested, fetched int) {
	stats := stack.cache.Stats()
	registry.CacheHits.WithLabelValues("memory").Add(float64(stats.Hits))
	registry.CacheMisses.WithLabelValues("memory").Add(float64(stats.Misses))
	if requested > fetched {
		registry.FetchFailures.WithLabelValues("series").Add(float64(requested - fetched))
	}
}

// recordTradeMetrics counts newly appended ledger trades by kind
func recordTradeMetrics(registry *metrics.Registry, trades []portfolio.Trade) {
	for _, tr := range trades {
		registry.TradesTotal.WithLabelValues(tr.Kind.String()).Inc()
	}
}

// resolveAsOf parses --as-of, defaulting to the current day
func resolveAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q, want YYYY-MM-DD: %w", value, err)
	}
	return asOf, nil
}

// negativeStreak counts consecutive trailing down days in the series
func negativeStreak(series market.Series) int {
	closes := series.Closes()
	streak := 0
	for i := len(closes) - 1; i > 0; i-- {
		if closes[i] >= closes[i-1] {
			break
		}
		streak++
	}
	return streak
}
