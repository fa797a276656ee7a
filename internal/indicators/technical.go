package indicators

import (
	"errors"
)

// ErrInsufficientData is returned when an input series is shorter than the
// window an indicator requires. Callers degrade to a neutral result instead
// of propagating it into scoring.
var ErrInsufficientData = errors.New("insufficient data")

// SMA calculates the simple moving average. The result holds one value per
// index >= period-1 of the input, so its length is len(values)-period+1.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, ErrInsufficientData
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// EMA calculates the exponential moving average, seeded with the SMA of the
// first period values. Output is aligned like SMA: len(values)-period+1 values.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, ErrInsufficientData
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)

	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out = append(out, ema)
	}
	return out, nil
}

// RSISignal labels the RSI reading
type RSISignal string

const (
	RSIOverbought RSISignal = "overbought" // RSI > 70
	RSIOversold   RSISignal = "oversold"   // RSI < 30
	RSINeutral    RSISignal = "neutral"
)

// RSIResult represents the latest RSI value and its signal label
type RSIResult struct {
	Value  float64   `json:"value"`
	Period int       `json:"period"`
	Signal RSISignal `json:"signal"`
}

// RSISeries calculates the Relative Strength Index over the trailing window at
// each index. The result holds one value per index >= period of the input.
// When the average loss over the window is zero the RSI is 100, never a
// division by zero.
func RSISeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 || len(prices) < period+1 {
		return nil, ErrInsufficientData
	}

	out := make([]float64, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		gain, loss := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			change := prices[j] - prices[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)

		if avgLoss == 0 {
			out = append(out, 100.0)
			continue
		}
		rs := avgGain / avgLoss
		out = append(out, 100.0-100.0/(1.0+rs))
	}
	return out, nil
}

// RSI calculates the latest RSI reading with its signal label
func RSI(prices []float64, period int) (RSIResult, error) {
	series, err := RSISeries(prices, period)
	if err != nil {
		return RSIResult{}, err
	}

	value := series[len(series)-1]
	signal := RSINeutral
	switch {
	case value > 70:
		signal = RSIOverbought
	case value < 30:
		signal = RSIOversold
	}
	return RSIResult{Value: value, Period: period, Signal: signal}, nil
}

// Trend labels the direction an indicator set points to
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// MACDResult represents the latest MACD state
type MACDResult struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Trend     Trend   `json:"trend"`
}

// MACDSeries calculates the MACD line, signal line, and histogram series.
// The MACD line aligns EMA(fast) and EMA(slow) by the slow-fast index offset;
// the signal line is an EMA of the MACD line; the histogram is their
// difference, aligned to the signal line.
func MACDSeries(prices []float64, fast, slow, signalPeriod int) (line, signal, histogram []float64, err error) {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return nil, nil, nil, ErrInsufficientData
	}
	if len(prices) < slow+signalPeriod-1 {
		return nil, nil, nil, ErrInsufficientData
	}

	emaFast, err := EMA(prices, fast)
	if err != nil {
		return nil, nil, nil, err
	}
	emaSlow, err := EMA(prices, slow)
	if err != nil {
		return nil, nil, nil, err
	}

	offset := slow - fast
	line = make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}

	signal, err = EMA(line, signalPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	histogram = make([]float64, len(signal))
	for i := range signal {
		histogram[i] = line[i+signalPeriod-1] - signal[i]
	}
	return line, signal, histogram, nil
}

// MACD calculates the latest MACD state with default-style trend labeling:
// bullish when histogram and MACD line are both positive, bearish when both
// negative, neutral otherwise.
func MACD(prices []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	line, signal, histogram, err := MACDSeries(prices, fast, slow, signalPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	result := MACDResult{
		Line:      line[len(line)-1],
		Signal:    signal[len(signal)-1],
		Histogram: histogram[len(histogram)-1],
		Trend:     TrendNeutral,
	}
	switch {
	case result.Histogram > 0 && result.Line > 0:
		result.Trend = TrendBullish
	case result.Histogram < 0 && result.Line < 0:
		result.Trend = TrendBearish
	}
	return result, nil
}
