package scoring

import (
	"math"

	"github.com/quantbyte/rotor/internal/catalyst"
	"github.com/quantbyte/rotor/internal/indicators"
	"github.com/quantbyte/rotor/internal/market"
)

// Score is the 4-component expected-return score for one instrument.
// Produced fresh per evaluation, never mutated.
type Score struct {
	Symbol         string  `json:"symbol"`
	ExpectedReturn float64 `json:"expected_return"` // [0,1]
	CatalystScore  float64 `json:"catalyst_score"`  // [0,1]
	MomentumScore  float64 `json:"momentum_score"`  // [-1,1]
	UpsideScore    float64 `json:"upside_score"`    // [0,1]
	TimingScore    float64 `json:"timing_score"`    // {-0.5, 0, 0.25, 0.5}
}

// Component weights of the expected-return formula
const (
	WeightCatalyst = 0.40
	WeightMomentum = 0.30
	WeightUpside   = 0.20
	WeightTiming   = 0.10
)

const (
	// DefaultMinHistory is the evidence floor: shorter series score zero
	DefaultMinHistory = 50
	// RelaxedMinHistory accepts the catalyst scanner's own minimum
	RelaxedMinHistory = 26

	momentumLookback = 5
	// Assumed typical MACD-histogram range used to normalize its delta
	macdHistogramRange = 10.0
	// Conservative upside fallback when no analyst target is supplied
	defaultUpside = 0.1
)

// Config controls scorer behavior
type Config struct {
	MinHistory int `yaml:"min_history"`
}

// DefaultConfig returns the standard scorer configuration
func DefaultConfig() *Config {
	return &Config{MinHistory: DefaultMinHistory}
}

// Scorer computes expected-return scores from price history and catalyst
// strength
type Scorer struct {
	cfg *Config
}

// NewScorer creates a scorer. A nil config uses defaults.
func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = DefaultMinHistory
	}
	return &Scorer{cfg: cfg}
}

// Score computes the expected-return score for one instrument. A series
// shorter than the configured minimum history yields a zero score across all
// components: not enough evidence, not an error. A nil catalyst profile
// contributes zero catalyst strength (backtest mode has no live catalyst
// feed). A nil analyst target falls back to a fixed conservative upside.
func (s *Scorer) Score(symbol string, series market.Series, profile *catalyst.Profile, analystTarget *float64) Score {
	score := Score{Symbol: symbol}
	if len(series) < s.cfg.MinHistory {
		return score
	}

	closes := series.Closes()

	if profile != nil {
		score.CatalystScore = clip(profile.Score, 0, 1)
	}
	score.MomentumScore = momentumScore(closes)
	score.UpsideScore = upsideScore(series.LastClose(), analystTarget)
	score.TimingScore = timingScore(closes)

	score.ExpectedReturn = clip(
		WeightCatalyst*score.CatalystScore+
			WeightMomentum*score.MomentumScore+
			WeightUpside*score.UpsideScore+
			WeightTiming*score.TimingScore,
		0, 1)
	return score
}

// momentumScore averages the normalized RSI delta and MACD-histogram delta
// over the 5-period lookback, clamped to [-1,1]
func momentumScore(closes []float64) float64 {
	rsiDelta := 0.0
	if rsi, err := indicators.RSISeries(closes, indicators.RSIPeriod); err == nil && len(rsi) > momentumLookback {
		rsiDelta = (rsi[len(rsi)-1] - rsi[len(rsi)-1-momentumLookback]) / 100.0
	}

	macdDelta := 0.0
	if _, _, histogram, err := indicators.MACDSeries(closes, indicators.MACDFast, indicators.MACDSlow, indicators.MACDSignal); err == nil && len(histogram) > momentumLookback {
		macdDelta = clip((histogram[len(histogram)-1]-histogram[len(histogram)-1-momentumLookback])/macdHistogramRange, -1, 1)
	}

	return clip((rsiDelta+macdDelta)/2.0, -1, 1)
}

// upsideScore is the capped distance to the analyst target, or a documented
// conservative default when no target is supplied
func upsideScore(price float64, target *float64) float64 {
	if target == nil || price <= 0 {
		return defaultUpside
	}
	return clip((*target-price)/price, 0, 1)
}

// timingScore buckets the entry quality from discrete RSI/MACD states.
// Buckets are evaluated in order; the extended bucket catches both an
// overbought RSI and a non-positive histogram.
func timingScore(closes []float64) float64 {
	rsi, err := indicators.RSI(closes, indicators.RSIPeriod)
	if err != nil {
		return 0
	}
	macd, err := indicators.MACD(closes, indicators.MACDFast, indicators.MACDSlow, indicators.MACDSignal)
	if err != nil {
		return 0
	}

	switch {
	case rsi.Value >= 40 && rsi.Value <= 60 && macd.Trend == indicators.TrendBullish:
		return 0.5
	case rsi.Value > 60 && rsi.Value <= 70 && macd.Histogram > 0:
		return 0.25
	case rsi.Value > 70 && rsi.Value <= 75:
		return 0
	case rsi.Value > 75 || macd.Histogram <= 0:
		return -0.5
	default:
		return 0
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
