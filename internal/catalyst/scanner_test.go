package catalyst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/market"
)

func buildSeries(n int, growth float64, lastVolumeMultiple float64) market.Series {
	series := make(market.Series, n)
	price := 100.0
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		volume := 1_000_000.0
		if i == n-1 {
			volume *= lastVolumeMultiple
		}
		series[i] = market.Candle{
			Time:   day.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: volume,
		}
		price *= 1 + growth
	}
	return series
}

func hasSignal(p *Profile, st SignalType) bool {
	for _, sig := range p.Signals {
		if sig.Type == st {
			return true
		}
	}
	return false
}

func TestScan_ShortSeriesIsEmpty(t *testing.T) {
	profile := NewScanner().Scan(buildSeries(25, 0.01, 1))

	assert.Empty(t, profile.Signals)
	assert.Zero(t, profile.Score)
}

func TestScan_OversoldBounceTriggers(t *testing.T) {
	profile := NewScanner().Scan(buildSeries(120, -0.02, 1))

	require.NotEmpty(t, profile.Signals)
	assert.True(t, hasSignal(profile, SignalRSIOversoldBounce))
	// A falling series sits near its trailing low as well
	assert.True(t, hasSignal(profile, SignalNear52WeekLow))
	assert.GreaterOrEqual(t, profile.Score, 0.0)
	assert.LessOrEqual(t, profile.Score, 1.0)
}

func TestScan_VolumeSpikeTriggers(t *testing.T) {
	profile := NewScanner().Scan(buildSeries(60, 0, 4))

	require.True(t, hasSignal(profile, SignalVolumeSpike))
	for _, sig := range profile.Signals {
		if sig.Type == SignalVolumeSpike {
			assert.InDelta(t, 0.20, sig.Weight, 1e-9)
			// ratio ~4 capped at value 1
			assert.InDelta(t, 1.0, sig.Value, 0.05)
		}
	}
}

func TestScan_UptrendTriggersMomentumSignals(t *testing.T) {
	profile := NewScanner().Scan(buildSeries(120, 0.02, 1))

	assert.True(t, hasSignal(profile, SignalMomentumUp))
	assert.True(t, hasSignal(profile, SignalRSIOverboughtMomentum))
	assert.True(t, hasSignal(profile, SignalMACDBullishCross))
	assert.LessOrEqual(t, profile.Score, 1.0)
}

func TestScan_SignalValuesNormalized(t *testing.T) {
	for _, growth := range []float64{-0.03, -0.01, 0, 0.01, 0.03} {
		profile := NewScanner().Scan(buildSeries(120, growth, 5))
		for _, sig := range profile.Signals {
			assert.GreaterOrEqual(t, sig.Value, 0.0, sig.Type.String())
			assert.LessOrEqual(t, sig.Value, 1.0, sig.Type.String())
			assert.Greater(t, sig.Weight, 0.0)
			assert.LessOrEqual(t, sig.Weight, 1.0)
		}
		assert.GreaterOrEqual(t, profile.Score, 0.0)
		assert.LessOrEqual(t, profile.Score, 1.0)
	}
}

func TestShouldExit_Overbought(t *testing.T) {
	signal := NewScanner().ShouldExit(buildSeries(120, 0.02, 1), nil, 0)

	require.True(t, signal.Triggered)
	assert.Equal(t, ExitOverbought, signal.Reason)
}

func TestShouldExit_TargetAchieved(t *testing.T) {
	// Gently declining so RSI stays below the overbought threshold
	series := buildSeries(60, -0.001, 1)
	target := 50.0

	signal := NewScanner().ShouldExit(series, &target, 0)

	require.True(t, signal.Triggered)
	assert.Equal(t, ExitTargetAchieved, signal.Reason)
}

func TestShouldExit_NegativeStreak(t *testing.T) {
	signal := NewScanner().ShouldExit(buildSeries(60, -0.001, 1), nil, 3)

	require.True(t, signal.Triggered)
	assert.Equal(t, ExitNegativeStreak, signal.Reason)
}

func TestShouldExit_NoSignal(t *testing.T) {
	signal := NewScanner().ShouldExit(buildSeries(60, -0.001, 1), nil, 0)

	assert.False(t, signal.Triggered)
	assert.Equal(t, ExitNone, signal.Reason)
}
