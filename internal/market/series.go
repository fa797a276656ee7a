package market

import (
	"time"
)

// Candle represents one OHLCV bar for an instrument
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is a chronologically ordered sequence of candles for one instrument.
// Insertion order is chronological order.
type Series []Candle

// Closes returns the closing prices in chronological order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high prices in chronological order
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low prices in chronological order
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the traded volumes in chronological order
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle, or false when the series is empty
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// LastClose returns the most recent closing price, or 0 when the series is empty
func (s Series) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// Tail returns the trailing n candles (the whole series when shorter than n)
func (s Series) Tail(n int) Series {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// UpTo returns the prefix of the series whose candles are not after asOf
func (s Series) UpTo(asOf time.Time) Series {
	cut := len(s)
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Time.After(asOf) {
			break
		}
		cut = i
	}
	return s[:cut]
}
