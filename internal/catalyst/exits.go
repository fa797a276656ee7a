package catalyst

import (
	"fmt"

	"github.com/quantbyte/rotor/internal/indicators"
	"github.com/quantbyte/rotor/internal/market"
)

// ExitReason identifies a bearish advisory signal for a held instrument
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitOverbought
	ExitMACDBearishCross
	ExitTargetAchieved
	ExitNegativeStreak
)

func (er ExitReason) String() string {
	switch er {
	case ExitNone:
		return "none"
	case ExitOverbought:
		return "rsi_overbought"
	case ExitMACDBearishCross:
		return "macd_bearish_crossover"
	case ExitTargetAchieved:
		return "target_achieved"
	case ExitNegativeStreak:
		return "negative_streak"
	default:
		return "unknown"
	}
}

// ExitSignal is an advisory only: binding exit decisions (stop loss, score
// differential, circuit breaker) belong to the rotation engine.
type ExitSignal struct {
	Triggered bool       `json:"triggered"`
	Reason    ExitReason `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
}

const exitRSIThreshold = 75.0
const exitNegativeStreakDays = 3

// ShouldExit reports the first bearish exit signal for a held instrument:
// RSI above 75, a MACD bearish crossover, the analyst target reached, or a
// streak of negative-momentum days.
func (s *Scanner) ShouldExit(series market.Series, analystTarget *float64, negativeDays int) ExitSignal {
	closes := series.Closes()
	price := series.LastClose()

	if rsi, err := indicators.RSI(closes, indicators.RSIPeriod); err == nil && rsi.Value > exitRSIThreshold {
		return ExitSignal{
			Triggered: true,
			Reason:    ExitOverbought,
			Detail:    fmt.Sprintf("RSI %.1f > %.0f", rsi.Value, exitRSIThreshold),
		}
	}

	if _, _, histogram, err := indicators.MACDSeries(closes, indicators.MACDFast, indicators.MACDSlow, indicators.MACDSignal); err == nil && len(histogram) >= 2 {
		prev, curr := histogram[len(histogram)-2], histogram[len(histogram)-1]
		if prev > 0 && curr <= 0 {
			return ExitSignal{
				Triggered: true,
				Reason:    ExitMACDBearishCross,
				Detail:    fmt.Sprintf("histogram %.4f -> %.4f", prev, curr),
			}
		}
	}

	if analystTarget != nil && price >= *analystTarget {
		return ExitSignal{
			Triggered: true,
			Reason:    ExitTargetAchieved,
			Detail:    fmt.Sprintf("price %.2f >= target %.2f", price, *analystTarget),
		}
	}

	if negativeDays >= exitNegativeStreakDays {
		return ExitSignal{
			Triggered: true,
			Reason:    ExitNegativeStreak,
			Detail:    fmt.Sprintf("%d consecutive negative days", negativeDays),
		}
	}

	return ExitSignal{Reason: ExitNone}
}
