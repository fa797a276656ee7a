package sizing

import (
	"math"
)

// Allocation policy: start at half the portfolio and scale up to the cap with
// conviction
const (
	BaseAllocation     = 0.50
	ConfidenceScaling  = 0.40
	DefaultMinAlloc    = 0.10
	DefaultMaxAlloc    = 0.90
	DefaultMaxLoss     = 0.15
	kellyMinOddsFactor = 0.5
)

// SizeResult is the outcome of position sizing: the allocation fraction of the
// portfolio and the whole-share count it buys at the given price
type SizeResult struct {
	Allocation float64 `json:"allocation"`
	Shares     int64   `json:"shares"`
}

// CalculatePositionSize sizes a position from portfolio value, price, and the
// expected-return score. Pure and deterministic: allocation is
// clip(0.5 + 0.4*score, minAlloc, maxAlloc) and shares are floored.
func CalculatePositionSize(portfolioValue, price, score float64) SizeResult {
	return CalculatePositionSizeBounds(portfolioValue, price, score, DefaultMinAlloc, DefaultMaxAlloc)
}

// CalculatePositionSizeBounds is CalculatePositionSize with explicit
// allocation bounds
func CalculatePositionSizeBounds(portfolioValue, price, score, minAlloc, maxAlloc float64) SizeResult {
	allocation := clip(BaseAllocation+score*ConfidenceScaling, minAlloc, maxAlloc)

	result := SizeResult{Allocation: allocation}
	if price > 0 && portfolioValue > 0 {
		result.Shares = int64(math.Floor(portfolioValue * allocation / price))
	}
	return result
}

// CalculateKellyFraction computes a half-Kelly position fraction from the
// expected return and win probability, with the loss bound acting as the
// odds denominator. Output is always clipped to [0.1, 0.9].
func CalculateKellyFraction(expectedReturn, winProbability float64) float64 {
	return KellyFraction(expectedReturn, winProbability, DefaultMaxLoss)
}

// KellyFraction is CalculateKellyFraction with an explicit maximum loss
func KellyFraction(expectedReturn, winProbability, maxLoss float64) float64 {
	b := math.Max(kellyMinOddsFactor, expectedReturn/maxLoss)
	raw := (b*winProbability - (1 - winProbability)) / b
	half := raw / 2
	return clip(half, DefaultMinAlloc, DefaultMaxAlloc)
}

// IsValidSize reports whether a share count at a price lands inside the
// allowed allocation band of the portfolio
func IsValidSize(shares int64, price, portfolioValue float64) bool {
	if shares <= 0 || portfolioValue <= 0 {
		return false
	}
	allocation := float64(shares) * price / portfolioValue
	return allocation >= DefaultMinAlloc && allocation <= DefaultMaxAlloc
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
