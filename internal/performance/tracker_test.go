package performance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/portfolio"
)

func day(n int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// portfolioWorth builds a portfolio whose total value is exactly v by
// holding cash only
func portfolioWorth(t *testing.T, initial, v float64) *portfolio.Portfolio {
	t.Helper()
	p := portfolio.New(initial)
	if v != initial {
		// Buy and sell one share to realize the difference as PnL
		require.True(t, p.AddPosition("XYZ", initial/2, 1, 0.5))
		require.True(t, p.RemovePosition("XYZ", initial/2+(v-initial)))
	}
	require.InDelta(t, v, p.TotalValue(), 1e-9)
	return p
}

func TestTrackerRecordReturns(t *testing.T) {
	tr := NewTracker()

	s0 := tr.Record(day(0), portfolioWorth(t, 1000, 1000))
	assert.Equal(t, 0.0, s0.DailyReturn)
	assert.Equal(t, 0.0, s0.CumulativeReturn)

	s1 := tr.Record(day(1), portfolioWorth(t, 1000, 1100))
	assert.InDelta(t, 0.10, s1.DailyReturn, 1e-9)
	assert.InDelta(t, 0.10, s1.CumulativeReturn, 1e-9)

	// Run-over-run return is measured against the previous snapshot,
	// not against initial capital
	s2 := tr.Record(day(2), portfolioWorth(t, 1000, 990))
	assert.InDelta(t, -0.10, s2.DailyReturn, 1e-9)
	assert.InDelta(t, -0.01, s2.CumulativeReturn, 1e-9)

	assert.Equal(t, 3, tr.Len())
}

func TestTrackerRecordCapturesPositions(t *testing.T) {
	p := portfolio.New(10_000)
	require.True(t, p.AddPosition("NVDA", 100, 40, 0.7))
	p.UpdatePrices(map[string]float64{"NVDA": 110})

	tr := NewTracker()
	snap := tr.Record(day(0), p)

	require.Len(t, snap.Positions, 1)
	assert.Equal(t, "NVDA", snap.Positions[0].Symbol)
	assert.Equal(t, int64(40), snap.Positions[0].Shares)
	assert.Equal(t, 100.0, snap.Positions[0].EntryPrice)
	assert.Equal(t, 110.0, snap.Positions[0].CurrentPrice)
	assert.InDelta(t, p.TotalValue(), snap.TotalValue, 1e-9)
	assert.InDelta(t, p.Cash(), snap.Cash, 1e-9)
}

func TestTrackerStats(t *testing.T) {
	tr := NewTracker()
	tr.Record(day(0), portfolioWorth(t, 1000, 1000))

	_, ok := tr.Stats()
	assert.False(t, ok, "one snapshot has no return to report")

	// Returns: +10%, -10%, 0%
	tr.Record(day(1), portfolioWorth(t, 1000, 1100))
	tr.Record(day(2), portfolioWorth(t, 1000, 990))
	tr.Record(day(3), portfolioWorth(t, 1000, 990))

	stats, ok := tr.Stats()
	require.True(t, ok)

	assert.Equal(t, 3, stats.TotalDays)
	assert.InDelta(t, 0, stats.AvgDailyReturn, 1e-9)
	assert.InDelta(t, 10, stats.MaxDailyReturn, 1e-9)
	assert.InDelta(t, -10, stats.MinDailyReturn, 1e-9)
	assert.Equal(t, 1, stats.PositiveDays)
	assert.Equal(t, 1, stats.NegativeDays)
	assert.InDelta(t, 100.0/3, stats.DailyWinRate, 1e-9)
	// Sample stdev of {10, -10, 0}
	assert.InDelta(t, 10, stats.StdDailyReturn, 1e-9)
}

func TestTrackerStatsEmpty(t *testing.T) {
	_, ok := NewTracker().Stats()
	assert.False(t, ok)
}

func TestTrackerSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	tr := NewTracker()
	tr.Record(day(0), portfolioWorth(t, 1000, 1000))
	tr.Record(day(1), portfolioWorth(t, 1000, 1050))
	require.NoError(t, tr.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tr.Snapshots(), loaded.Snapshots())

	// Appending after reload continues the return chain
	snap := loaded.Record(day(2), portfolioWorth(t, 1000, 1155))
	assert.InDelta(t, 0.10, snap.DailyReturn, 1e-9)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Len())
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
