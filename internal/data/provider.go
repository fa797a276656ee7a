package data

import (
	"context"
	"errors"

	"github.com/quantbyte/rotor/internal/market"
)

// ErrPriceUnavailable is returned when a provider has no quote for a symbol
var ErrPriceUnavailable = errors.New("price unavailable")

// SeriesProvider supplies a chronologically ordered candle series with the
// given lookback length. Failures are per symbol and never affect siblings.
type SeriesProvider interface {
	Series(ctx context.Context, symbol string, lookback int) (market.Series, error)
}

// PriceProvider supplies the latest price for a symbol
type PriceProvider interface {
	Price(ctx context.Context, symbol string) (float64, error)
}
