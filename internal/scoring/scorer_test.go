package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantbyte/rotor/internal/catalyst"
	"github.com/quantbyte/rotor/internal/market"
)

func trendSeries(n int, growth float64) market.Series {
	series := make(market.Series, n)
	price := 100.0
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = market.Candle{
			Time:   day.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1_000_000,
		}
		price *= 1 + growth
	}
	return series
}

func TestScore_ShortSeriesIsZero(t *testing.T) {
	scorer := NewScorer(nil)

	score := scorer.Score("AAPL", trendSeries(49, 0.01), nil, nil)

	assert.Zero(t, score.ExpectedReturn)
	assert.Zero(t, score.CatalystScore)
	assert.Zero(t, score.MomentumScore)
	assert.Zero(t, score.UpsideScore)
	assert.Zero(t, score.TimingScore)
}

func TestScore_RelaxedHistoryAcceptsShorterSeries(t *testing.T) {
	scorer := NewScorer(&Config{MinHistory: RelaxedMinHistory})

	series := trendSeries(40, 0.01)
	score := scorer.Score("AAPL", series, nil, nil)

	// 40 points clears the relaxed floor, so the upside fallback applies
	// where the default scorer would return an all-zero score
	assert.InDelta(t, 0.1, score.UpsideScore, 1e-9)
	assert.Zero(t, NewScorer(nil).Score("AAPL", series, nil, nil).UpsideScore)
}

func TestScore_ComponentBounds(t *testing.T) {
	scorer := NewScorer(nil)
	scanner := catalyst.NewScanner()

	for _, growth := range []float64{-0.05, -0.01, 0, 0.01, 0.05} {
		series := trendSeries(120, growth)
		profile := scanner.Scan(series)

		score := scorer.Score("X", series, profile, nil)

		assert.GreaterOrEqual(t, score.ExpectedReturn, 0.0)
		assert.LessOrEqual(t, score.ExpectedReturn, 1.0)
		assert.GreaterOrEqual(t, score.CatalystScore, 0.0)
		assert.LessOrEqual(t, score.CatalystScore, 1.0)
		assert.GreaterOrEqual(t, score.MomentumScore, -1.0)
		assert.LessOrEqual(t, score.MomentumScore, 1.0)
		assert.GreaterOrEqual(t, score.UpsideScore, 0.0)
		assert.LessOrEqual(t, score.UpsideScore, 1.0)
		assert.Contains(t, []float64{-0.5, 0, 0.25, 0.5}, score.TimingScore)
	}
}

func TestScore_UpsideFromAnalystTarget(t *testing.T) {
	scorer := NewScorer(nil)
	series := trendSeries(120, 0)
	price := series.LastClose()

	target := price * 1.25
	score := scorer.Score("X", series, nil, &target)
	assert.InDelta(t, 0.25, score.UpsideScore, 1e-9)

	// Target far above price is capped at 1
	bigTarget := price * 5
	score = scorer.Score("X", series, nil, &bigTarget)
	assert.InDelta(t, 1.0, score.UpsideScore, 1e-9)

	// Target below price floors at 0
	lowTarget := price * 0.5
	score = scorer.Score("X", series, nil, &lowTarget)
	assert.Zero(t, score.UpsideScore)
}

func TestScore_UpsideFallbackWithoutTarget(t *testing.T) {
	scorer := NewScorer(nil)

	score := scorer.Score("X", trendSeries(120, 0), nil, nil)

	assert.InDelta(t, 0.1, score.UpsideScore, 1e-9)
}

func TestScore_NegativeComponentsNeverPushBelowZero(t *testing.T) {
	scorer := NewScorer(nil)

	// Flat history with a fresh hard drop: RSI and the MACD histogram are
	// both falling over the lookback, so momentum and timing go negative
	series := trendSeries(100, 0)
	price := series.LastClose()
	day := series[len(series)-1].Time
	for i := 1; i <= 20; i++ {
		price *= 0.95
		series = append(series, market.Candle{
			Time: day.AddDate(0, 0, i), Open: price, High: price * 1.01,
			Low: price * 0.99, Close: price, Volume: 1_000_000,
		})
	}

	score := scorer.Score("X", series, nil, nil)

	assert.Less(t, score.MomentumScore, 0.0)
	assert.Equal(t, -0.5, score.TimingScore)
	assert.GreaterOrEqual(t, score.ExpectedReturn, 0.0)
}

func TestScore_UptrendBeatsDowntrend(t *testing.T) {
	scorer := NewScorer(nil)
	scanner := catalyst.NewScanner()

	up := trendSeries(120, 0.02)
	down := trendSeries(120, -0.02)

	upScore := scorer.Score("UP", up, scanner.Scan(up), nil)
	downScore := scorer.Score("DOWN", down, scanner.Scan(down), nil)

	assert.Greater(t, upScore.MomentumScore, downScore.MomentumScore)
}

func TestScore_Deterministic(t *testing.T) {
	scorer := NewScorer(nil)
	scanner := catalyst.NewScanner()
	series := trendSeries(120, 0.01)

	a := scorer.Score("X", series, scanner.Scan(series), nil)
	b := scorer.Score("X", series, scanner.Scan(series), nil)

	assert.Equal(t, a, b)
}
