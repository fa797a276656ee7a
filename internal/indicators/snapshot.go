package indicators

import (
	"math"

	"github.com/quantbyte/rotor/internal/market"
)

// Standard periods used across the engine
const (
	RSIPeriod         = 14
	MACDFast          = 12
	MACDSlow          = 26
	MACDSignal        = 9
	BollingerPeriod   = 20
	BollingerK        = 2.0
	StochasticKPeriod = 14
	StochasticDPeriod = 3
)

// Trend-strength blend. Tunable policy constants, not derived from a law.
const (
	strengthWeightPercentB = 0.3
	strengthWeightRSI      = 0.3
	strengthWeightStochK   = 0.4
)

// Snapshot is an immutable per-call summary of all indicators for one series
type Snapshot struct {
	RSI        RSIResult        `json:"rsi"`
	MACD       MACDResult       `json:"macd"`
	Bollinger  BollingerResult  `json:"bollinger"`
	Stochastic StochasticResult `json:"stochastic"`
	Trend      Trend            `json:"trend"`
	Strength   float64          `json:"strength"` // [0,100]
}

// ComputeSnapshot evaluates every indicator over the series and aggregates a
// trend vote and a blended strength. Indicators without enough data contribute
// neutral readings rather than an error.
func ComputeSnapshot(series market.Series) Snapshot {
	closes := series.Closes()

	snap := Snapshot{
		RSI:        RSIResult{Value: 50, Period: RSIPeriod, Signal: RSINeutral},
		MACD:       MACDResult{Trend: TrendNeutral},
		Bollinger:  BollingerResult{PercentB: 0.5},
		Stochastic: StochasticResult{K: 50, D: 50, Signal: StochasticNeutral},
		Trend:      TrendNeutral,
	}

	if rsi, err := RSI(closes, RSIPeriod); err == nil {
		snap.RSI = rsi
	}
	if macd, err := MACD(closes, MACDFast, MACDSlow, MACDSignal); err == nil {
		snap.MACD = macd
	}
	if boll, err := Bollinger(closes, BollingerPeriod, BollingerK); err == nil {
		snap.Bollinger = boll
	}
	if stoch, err := Stochastic(series.Highs(), series.Lows(), closes, StochasticKPeriod, StochasticDPeriod); err == nil {
		snap.Stochastic = stoch
	}

	snap.Trend = voteTrend(snap)
	snap.Strength = blendStrength(snap)
	return snap
}

// voteTrend takes a simple vote across the MACD, RSI, and stochastic signals
func voteTrend(snap Snapshot) Trend {
	vote := 0

	switch snap.MACD.Trend {
	case TrendBullish:
		vote++
	case TrendBearish:
		vote--
	}

	// Overbought readings confirm an uptrend for the trend label; the
	// mean-reversion reading of the same signals lives in the catalyst rules.
	switch snap.RSI.Signal {
	case RSIOverbought:
		vote++
	case RSIOversold:
		vote--
	}

	switch snap.Stochastic.Signal {
	case StochasticOverbought:
		vote++
	case StochasticOversold:
		vote--
	}

	switch {
	case vote > 0:
		return TrendBullish
	case vote < 0:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// blendStrength scales %B, RSI, and %K into [0,100] with fixed weights
func blendStrength(snap Snapshot) float64 {
	percentB := math.Max(0, math.Min(1, snap.Bollinger.PercentB))
	strength := strengthWeightPercentB*percentB*100 +
		strengthWeightRSI*snap.RSI.Value +
		strengthWeightStochK*snap.Stochastic.K
	return math.Max(0, math.Min(100, strength))
}
