package data

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quantbyte/rotor/internal/market"
)

const defaultFetchWorkers = 8

// Fetcher fans per-symbol requests out across a bounded worker pool. A
// failed symbol is omitted from the result map and never aborts the batch.
type Fetcher struct {
	series  SeriesProvider
	prices  PriceProvider
	workers int
}

// NewFetcher creates a fetcher over the providers. workers <= 0 selects the
// default pool size.
func NewFetcher(series SeriesProvider, prices PriceProvider, workers int) *Fetcher {
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	return &Fetcher{series: series, prices: prices, workers: workers}
}

// FetchSeries concurrently loads the candle series for every symbol
func (f *Fetcher) FetchSeries(ctx context.Context, symbols []string, lookback int) map[string]market.Series {
	results := make(map[string]market.Series, len(symbols))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.workers)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			series, err := f.series.Series(ctx, symbol, lookback)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("series fetch failed, skipping")
				return
			}
			mu.Lock()
			results[symbol] = series
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

// FetchPrices concurrently loads the latest price for every symbol
func (f *Fetcher) FetchPrices(ctx context.Context, symbols []string) map[string]float64 {
	results := make(map[string]float64, len(symbols))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.workers)

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			price, err := f.prices.Price(ctx, symbol)
			if err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed, skipping")
				return
			}
			mu.Lock()
			results[symbol] = price
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}
