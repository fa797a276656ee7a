package catalyst

import (
	"math"

	"github.com/quantbyte/rotor/internal/indicators"
	"github.com/quantbyte/rotor/internal/market"
)

// SignalType identifies a catalyst rule
type SignalType int

const (
	SignalRSIOversoldBounce SignalType = iota
	SignalMACDBullishCross
	SignalVolumeSpike
	SignalNear52WeekLow
	SignalMomentumUp
	SignalVolatilityExpansion
	SignalRSIOverboughtMomentum
)

func (st SignalType) String() string {
	switch st {
	case SignalRSIOversoldBounce:
		return "rsi_oversold_bounce"
	case SignalMACDBullishCross:
		return "macd_bullish_crossover"
	case SignalVolumeSpike:
		return "volume_spike"
	case SignalNear52WeekLow:
		return "near_52_week_low"
	case SignalMomentumUp:
		return "momentum_up"
	case SignalVolatilityExpansion:
		return "volatility_expansion"
	case SignalRSIOverboughtMomentum:
		return "rsi_overbought_momentum"
	default:
		return "unknown"
	}
}

// Signal is one triggered catalyst rule with its fixed weight and a value
// normalized into [0,1]
type Signal struct {
	Type   SignalType `json:"type"`
	Weight float64    `json:"weight"`
	Value  float64    `json:"value"`
}

// Profile is the ordered set of triggered signals for one instrument, with the
// aggregated score sum(weight*value) clipped to [0,1]
type Profile struct {
	Signals []Signal `json:"signals"`
	Score   float64  `json:"score"`
}

// Catalyst rule weights
const (
	weightRSIOversold     = 0.15
	weightMACDCross       = 0.25
	weightVolumeSpike     = 0.20
	weightNear52Low       = 0.15
	weightMomentumUp      = 0.10
	weightVolExpansion    = 0.10
	weightRSIOverbought   = 0.05
	volumeSpikeThreshold  = 1.5
	near52LowThreshold    = 0.15
	volExpansionThreshold = 0.5
	yearWindow            = 260
	volumeAvgWindow       = 20
	momentumSMAWindow     = 20
	minScanPoints         = 26
	epsilon               = 1e-9
)

// Scanner evaluates the fixed ordered catalyst rule list over one instrument's
// price/volume series
type Scanner struct{}

// NewScanner creates a catalyst scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan tests every catalyst rule against the series and aggregates the
// triggered signals. Fewer than 26 points yields an empty profile with score
// 0, not an error.
func (s *Scanner) Scan(series market.Series) *Profile {
	profile := &Profile{Signals: []Signal{}}
	if len(series) < minScanPoints {
		return profile
	}

	closes := series.Closes()
	price := series.LastClose()

	rsi, rsiErr := indicators.RSI(closes, indicators.RSIPeriod)
	macd, macdErr := indicators.MACD(closes, indicators.MACDFast, indicators.MACDSlow, indicators.MACDSignal)

	// 1. RSI oversold bounce
	if rsiErr == nil && rsi.Value < 30 {
		profile.add(SignalRSIOversoldBounce, weightRSIOversold, (30-rsi.Value)/30)
	}

	// 2. MACD bullish crossover
	if macdErr == nil && macd.Histogram > 0 && macd.Line > macd.Signal {
		profile.add(SignalMACDBullishCross, weightMACDCross, math.Min(1, macd.Histogram/(math.Abs(macd.Line)+epsilon)))
	}

	// 3. Volume spike vs 20-day average
	if ratio, ok := volumeRatio(series.Volumes(), volumeAvgWindow); ok && ratio > volumeSpikeThreshold {
		profile.add(SignalVolumeSpike, weightVolumeSpike, math.Min(1, ratio/3))
	}

	// 4. Price near trailing 52-week low
	low, high := rangeExtremes(series.Tail(yearWindow))
	if low > 0 {
		distance := (price - low) / low
		if distance >= 0 && distance < near52LowThreshold {
			profile.add(SignalNear52WeekLow, weightNear52Low, 1-distance/near52LowThreshold)
		}
	}

	// 5. Momentum up vs 20-day SMA
	if sma, err := indicators.SMA(closes, momentumSMAWindow); err == nil {
		mean := sma[len(sma)-1]
		if mean > 0 && price > mean {
			profile.add(SignalMomentumUp, weightMomentumUp, (price-mean)/mean)
		}
	}

	// 6. Volatility expansion over the trailing year
	if low > 0 {
		ratio := (high - low) / low
		if ratio > volExpansionThreshold {
			profile.add(SignalVolatilityExpansion, weightVolExpansion, math.Min(1, ratio/1.0))
		}
	}

	// 7. RSI overbought momentum
	if rsiErr == nil && rsi.Value > 70 {
		profile.add(SignalRSIOverboughtMomentum, weightRSIOverbought, (rsi.Value-70)/30)
	}

	return profile
}

func (p *Profile) add(st SignalType, weight, value float64) {
	value = math.Max(0, math.Min(1, value))
	p.Signals = append(p.Signals, Signal{Type: st, Weight: weight, Value: value})
	p.Score = math.Min(1, p.Score+weight*value)
}

func volumeRatio(volumes []float64, window int) (float64, bool) {
	if len(volumes) < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range volumes[len(volumes)-window:] {
		sum += v
	}
	avg := sum / float64(window)
	if avg <= 0 {
		return 0, false
	}
	return volumes[len(volumes)-1] / avg, true
}

func rangeExtremes(series market.Series) (low, high float64) {
	if len(series) == 0 {
		return 0, 0
	}
	low, high = series[0].Low, series[0].High
	for _, c := range series[1:] {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	return low, high
}
