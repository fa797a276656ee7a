package indicators

import (
	"math"
)

// BollingerResult represents the latest Bollinger Band state. PercentB places
// the last price within the band: 0 at the lower band, 1 at the upper band.
type BollingerResult struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	PercentB float64 `json:"percent_b"`
}

// bollingerMinWidth keeps the %B denominator away from zero on flat windows
const bollingerMinWidth = 1e-9

// Bollinger calculates Bollinger Bands over the trailing window: middle is the
// SMA, the band is k population standard deviations wide.
func Bollinger(prices []float64, period int, k float64) (BollingerResult, error) {
	if period <= 0 || len(prices) < period {
		return BollingerResult{}, ErrInsufficientData
	}

	window := prices[len(prices)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(period)
	band := k * math.Sqrt(variance)

	upper := mean + band
	lower := mean - band
	width := upper - lower
	if width < bollingerMinWidth {
		width = bollingerMinWidth
	}

	last := prices[len(prices)-1]
	return BollingerResult{
		Upper:    upper,
		Middle:   mean,
		Lower:    lower,
		PercentB: (last - lower) / width,
	}, nil
}

// StochasticSignal labels the stochastic oscillator reading
type StochasticSignal string

const (
	StochasticOverbought StochasticSignal = "overbought" // %K and %D both > 80
	StochasticOversold   StochasticSignal = "oversold"   // %K and %D both < 20
	StochasticNeutral    StochasticSignal = "neutral"
)

// StochasticResult represents the latest stochastic oscillator state
type StochasticResult struct {
	K      float64          `json:"k"`
	D      float64          `json:"d"`
	Signal StochasticSignal `json:"signal"`
}

// Stochastic calculates the stochastic oscillator: %K places the close within
// the trailing high-low range, %D is the SMA of %K over dPeriod readings.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (StochasticResult, error) {
	if kPeriod <= 0 || dPeriod <= 0 {
		return StochasticResult{}, ErrInsufficientData
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n || n < kPeriod+dPeriod-1 {
		return StochasticResult{}, ErrInsufficientData
	}

	kValues := make([]float64, 0, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		highest := highs[i-kPeriod+1]
		lowest := lows[i-kPeriod+1]
		for j := i - kPeriod + 2; j <= i; j++ {
			if highs[j] > highest {
				highest = highs[j]
			}
			if lows[j] < lowest {
				lowest = lows[j]
			}
		}
		spread := highest - lowest
		if spread < bollingerMinWidth {
			spread = bollingerMinWidth
		}
		kValues = append(kValues, (closes[i]-lowest)/spread*100.0)
	}

	dValues, err := SMA(kValues, dPeriod)
	if err != nil {
		return StochasticResult{}, err
	}

	k := kValues[len(kValues)-1]
	d := dValues[len(dValues)-1]
	signal := StochasticNeutral
	switch {
	case k > 80 && d > 80:
		signal = StochasticOverbought
	case k < 20 && d < 20:
		signal = StochasticOversold
	}
	return StochasticResult{K: k, D: d, Signal: signal}, nil
}
