package data

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/quantbyte/rotor/internal/market"
)

const (
	breakerConsecutiveFailures = 3
	breakerMinRequests         = 20
	breakerFailureRate         = 0.05
)

func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= breakerConsecutiveFailures {
				return true
			}
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > breakerFailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
}

// BreakerSeriesProvider shields an upstream series provider behind a circuit
// breaker so a failing supplier is backed off instead of hammered
type BreakerSeriesProvider struct {
	cb       *gobreaker.CircuitBreaker
	upstream SeriesProvider
}

// NewBreakerSeriesProvider wraps upstream with a named breaker
func NewBreakerSeriesProvider(name string, upstream SeriesProvider) *BreakerSeriesProvider {
	return &BreakerSeriesProvider{
		cb:       gobreaker.NewCircuitBreaker(breakerSettings(name)),
		upstream: upstream,
	}
}

func (p *BreakerSeriesProvider) Series(ctx context.Context, symbol string, lookback int) (market.Series, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.upstream.Series(ctx, symbol, lookback)
	})
	if err != nil {
		return nil, err
	}
	return v.(market.Series), nil
}

// BreakerPriceProvider shields an upstream price provider behind a circuit
// breaker
type BreakerPriceProvider struct {
	cb       *gobreaker.CircuitBreaker
	upstream PriceProvider
}

// NewBreakerPriceProvider wraps upstream with a named breaker
func NewBreakerPriceProvider(name string, upstream PriceProvider) *BreakerPriceProvider {
	return &BreakerPriceProvider{
		cb:       gobreaker.NewCircuitBreaker(breakerSettings(name)),
		upstream: upstream,
	}
}

func (p *BreakerPriceProvider) Price(ctx context.Context, symbol string) (float64, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.upstream.Price(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
