package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/quantbyte/rotor/internal/scoring"
)

// Cadence is the fixed rebalance interval of a simulation run
type Cadence int

const (
	CadenceDaily Cadence = iota
	CadenceWeekly
	CadenceMonthly
)

func (c Cadence) String() string {
	switch c {
	case CadenceDaily:
		return "daily"
	case CadenceWeekly:
		return "weekly"
	case CadenceMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParseCadence maps a config string to a Cadence
func ParseCadence(s string) (Cadence, error) {
	switch s {
	case "daily":
		return CadenceDaily, nil
	case "weekly":
		return CadenceWeekly, nil
	case "monthly":
		return CadenceMonthly, nil
	default:
		return CadenceDaily, fmt.Errorf("unknown cadence %q", s)
	}
}

// next advances a rebalance date by one interval
func (c Cadence) next(t time.Time) time.Time {
	switch c {
	case CadenceWeekly:
		return t.AddDate(0, 0, 7)
	case CadenceMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Config describes one simulation run
type Config struct {
	Start               time.Time       `json:"start" yaml:"start"`
	End                 time.Time       `json:"end" yaml:"end"`
	InitialCapital      float64         `json:"initial_capital" yaml:"initial_capital"`
	Cadence             Cadence         `json:"cadence" yaml:"cadence"`
	Universe            []string        `json:"universe" yaml:"universe"`
	MaxPositions        int             `json:"max_positions" yaml:"max_positions"`
	PositionSizePercent float64         `json:"position_size_percent" yaml:"position_size_percent"`
	StopLossPercent     *float64        `json:"stop_loss_percent,omitempty" yaml:"stop_loss_percent,omitempty"`
	TakeProfitPercent   *float64        `json:"take_profit_percent,omitempty" yaml:"take_profit_percent,omitempty"`
	BenchmarkSymbol     string          `json:"benchmark_symbol,omitempty" yaml:"benchmark_symbol,omitempty"`
	Scorer              *scoring.Config `json:"scorer,omitempty" yaml:"scorer,omitempty"`
}

// Validate fails fast before any simulation work: a partially-run backtest
// with invalid config is meaningless
func (c *Config) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return errors.New("start and end dates are required")
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("end %s must be after start %s",
			c.End.Format("2006-01-02"), c.Start.Format("2006-01-02"))
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", c.InitialCapital)
	}
	if len(c.Universe) == 0 {
		return errors.New("universe must not be empty")
	}
	if c.MaxPositions < 1 {
		return fmt.Errorf("max positions must be at least 1, got %d", c.MaxPositions)
	}
	if c.PositionSizePercent <= 0 || c.PositionSizePercent > 1 {
		return fmt.Errorf("position size percent must be in (0,1], got %.4f", c.PositionSizePercent)
	}
	return nil
}

// ExitReason records why a simulated position was closed
type ExitReason string

const (
	ExitRebalance   ExitReason = "rebalance"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTakeProfit  ExitReason = "take_profit"
	ExitEndOfPeriod ExitReason = "end_of_period"
)

// Position is the simulator's own position model, independent of the live
// portfolio's: it must survive into a ClosedPosition with exit bookkeeping
type Position struct {
	Symbol       string    `json:"symbol"`
	Shares       int64     `json:"shares"`
	EntryPrice   float64   `json:"entry_price"`
	EntryDate    time.Time `json:"entry_date"`
	CurrentPrice float64   `json:"current_price"`
}

// Value returns the marked-to-market value
func (p Position) Value() float64 {
	return float64(p.Shares) * p.CurrentPrice
}

// PnLPercent returns the open gain or loss against entry
func (p Position) PnLPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// ClosedPosition is the terminal record of a simulated position
type ClosedPosition struct {
	Symbol     string     `json:"symbol"`
	Shares     int64      `json:"shares"`
	EntryPrice float64    `json:"entry_price"`
	EntryDate  time.Time  `json:"entry_date"`
	ExitPrice  float64    `json:"exit_price"`
	ExitDate   time.Time  `json:"exit_date"`
	Reason     ExitReason `json:"reason"`
	PnL        float64    `json:"pnl"`
	PnLPercent float64    `json:"pnl_percent"`
}

// Snapshot is one dated observation of the simulated portfolio
type Snapshot struct {
	Date             time.Time  `json:"date"`
	TotalValue       float64    `json:"total_value"`
	Cash             float64    `json:"cash"`
	Positions        []Position `json:"positions"`
	DailyReturn      float64    `json:"daily_return"`
	CumulativeReturn float64    `json:"cumulative_return"`
}

// Metrics summarizes a completed run
type Metrics struct {
	TotalReturn          float64 `json:"total_return"`
	TotalReturnPercent   float64 `json:"total_return_percent"`
	CAGR                 float64 `json:"cagr"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	MaxDrawdownPercent   float64 `json:"max_drawdown_percent"`
	CalmarRatio          float64 `json:"calmar_ratio"`
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	ProfitFactor         float64 `json:"profit_factor"`
	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"`
}

// Results is the full artifact of one simulation run
type Results struct {
	RunID                  string           `json:"run_id"`
	Config                 *Config          `json:"config"`
	StartedAt              time.Time        `json:"started_at"`
	FinishedAt             time.Time        `json:"finished_at"`
	Snapshots              []Snapshot       `json:"snapshots"`
	ClosedPositions        []ClosedPosition `json:"closed_positions"`
	Metrics                *Metrics         `json:"metrics"`
	BenchmarkReturnPercent *float64         `json:"benchmark_return_percent,omitempty"`
}
