package backtest

import (
	"math"
)

const (
	tradingDaysPerYear = 252
	daysPerYear        = 365.25

	// Profit factor is capped so a run with zero losing trades stays
	// representable in JSON instead of serializing +Inf
	maxProfitFactor = 1000.0
)

// computeMetrics derives the summary metrics from the snapshot series and the
// closed-position history of one run
func computeMetrics(cfg *Config, snapshots []Snapshot, closed []ClosedPosition) *Metrics {
	m := &Metrics{}
	if len(snapshots) == 0 {
		return m
	}

	finalValue := snapshots[len(snapshots)-1].TotalValue
	m.TotalReturn = finalValue - cfg.InitialCapital
	if cfg.InitialCapital > 0 {
		m.TotalReturnPercent = m.TotalReturn / cfg.InitialCapital * 100
	}

	m.CAGR = cagr(cfg, finalValue)

	daily := make([]float64, len(snapshots))
	for i, s := range snapshots {
		daily[i] = s.DailyReturn
	}
	m.AnnualizedVolatility = stdev(daily) * math.Sqrt(tradingDaysPerYear)
	if m.AnnualizedVolatility > 0 {
		m.SharpeRatio = m.CAGR / m.AnnualizedVolatility
	}
	if dd := downsideDeviation(daily) * math.Sqrt(tradingDaysPerYear); dd > 0 {
		m.SortinoRatio = m.CAGR / dd
	}

	m.MaxDrawdownPercent = maxDrawdown(snapshots)
	if m.MaxDrawdownPercent > 0 {
		m.CalmarRatio = m.CAGR / (m.MaxDrawdownPercent / 100)
	}

	tradeStats(m, closed)
	return m
}

func cagr(cfg *Config, finalValue float64) float64 {
	years := cfg.End.Sub(cfg.Start).Hours() / 24 / daysPerYear
	if years <= 0 || cfg.InitialCapital <= 0 {
		return 0
	}
	if finalValue <= 0 {
		return -1
	}
	return math.Pow(finalValue/cfg.InitialCapital, 1/years) - 1
}

// maxDrawdown returns the largest peak-to-trough decline over the snapshot
// series as a non-negative percentage
func maxDrawdown(snapshots []Snapshot) float64 {
	peak := snapshots[0].TotalValue
	worst := 0.0
	for _, s := range snapshots {
		if s.TotalValue > peak {
			peak = s.TotalValue
		}
		if peak > 0 {
			if dd := (peak - s.TotalValue) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func tradeStats(m *Metrics, closed []ClosedPosition) {
	var totalWin, totalLoss float64
	for _, c := range closed {
		if c.PnL > 0 {
			m.WinningTrades++
			totalWin += c.PnL
		} else if c.PnL < 0 {
			m.LosingTrades++
			totalLoss += c.PnL
		}
	}
	m.TotalTrades = len(closed)

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = totalWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = totalLoss / float64(m.LosingTrades)
	}

	switch {
	case totalLoss < 0:
		m.ProfitFactor = math.Min(totalWin/-totalLoss, maxProfitFactor)
	case totalWin > 0:
		m.ProfitFactor = maxProfitFactor
	}
}

func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// downsideDeviation is the root-mean-square of the negative returns only,
// with the denominator over all observations
func downsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(len(values)))
}
