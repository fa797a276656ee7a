package persistence

import (
	"context"
	"time"

	"github.com/quantbyte/rotor/internal/portfolio"
)

// TimeRange is a query window over trade timestamps
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TradeSink durably records executed trades. The strategy core never
// requires one; a sink is wired in only when durability is wanted.
type TradeSink interface {
	Insert(ctx context.Context, trade portfolio.Trade) error
	InsertBatch(ctx context.Context, trades []portfolio.Trade) error
	ListBySymbol(ctx context.Context, symbol string, tr TimeRange, limit int) ([]portfolio.Trade, error)
}

// NopSink discards everything, used when no persistence is configured
type NopSink struct{}

func (NopSink) Insert(context.Context, portfolio.Trade) error { return nil }

func (NopSink) InsertBatch(context.Context, []portfolio.Trade) error { return nil }

func (NopSink) ListBySymbol(context.Context, string, TimeRange, int) ([]portfolio.Trade, error) {
	return nil, nil
}
