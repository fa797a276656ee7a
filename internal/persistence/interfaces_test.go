package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/portfolio"
)

func TestNopSink_DiscardsEverything(t *testing.T) {
	var sink TradeSink = NopSink{}
	ctx := context.Background()

	require.NoError(t, sink.Insert(ctx, portfolio.Trade{Symbol: "NVDA"}))
	require.NoError(t, sink.InsertBatch(ctx, []portfolio.Trade{{Symbol: "NVDA"}}))

	trades, err := sink.ListBySymbol(ctx, "NVDA", TimeRange{}, 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
