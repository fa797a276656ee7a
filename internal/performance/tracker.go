package performance

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/quantbyte/rotor/internal/backtest"
	"github.com/quantbyte/rotor/internal/portfolio"
)

// Stats summarizes the recorded run-over-run returns. Return figures are
// percents, e.g. 2.5 for +2.5%.
type Stats struct {
	TotalDays      int     `json:"total_days"`
	AvgDailyReturn float64 `json:"avg_daily_return"`
	StdDailyReturn float64 `json:"std_daily_return"`
	MaxDailyReturn float64 `json:"max_daily_return"`
	MinDailyReturn float64 `json:"min_daily_return"`
	PositiveDays   int     `json:"positive_days"`
	NegativeDays   int     `json:"negative_days"`
	DailyWinRate   float64 `json:"win_rate_daily"`
}

// Tracker accumulates dated portfolio snapshots across rotate runs. The
// return of each snapshot is measured against the previous one, so stats
// need at least two recorded snapshots.
type Tracker struct {
	snapshots []backtest.Snapshot
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

type history struct {
	Snapshots []backtest.Snapshot `json:"snapshots"`
}

// Load reads a tracker from its history file. A missing file yields an
// empty tracker, so the first rotate run needs no bootstrap step.
func Load(path string) (*Tracker, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewTracker(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var h history
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return &Tracker{snapshots: h.Snapshots}, nil
}

// Save writes the full snapshot history to path
func (t *Tracker) Save(path string) error {
	raw, err := json.MarshalIndent(history{Snapshots: t.snapshots}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Record appends a snapshot of the portfolio taken at the given time and
// returns it. Returns are fractions, consistent with backtest snapshots.
func (t *Tracker) Record(at time.Time, p *portfolio.Portfolio) backtest.Snapshot {
	value := p.TotalValue()

	positions := make([]backtest.Position, 0, p.NumPositions())
	for _, pos := range p.Positions() {
		positions = append(positions, backtest.Position{
			Symbol:       pos.Symbol,
			Shares:       pos.Shares,
			EntryPrice:   pos.EntryPrice,
			EntryDate:    pos.EntryTime,
			CurrentPrice: pos.CurrentPrice,
		})
	}

	daily := 0.0
	if n := len(t.snapshots); n > 0 && t.snapshots[n-1].TotalValue > 0 {
		daily = (value - t.snapshots[n-1].TotalValue) / t.snapshots[n-1].TotalValue
	}
	cumulative := 0.0
	if p.InitialCapital() > 0 {
		cumulative = (value - p.InitialCapital()) / p.InitialCapital()
	}

	snap := backtest.Snapshot{
		Date:             at,
		TotalValue:       value,
		Cash:             p.Cash(),
		Positions:        positions,
		DailyReturn:      daily,
		CumulativeReturn: cumulative,
	}
	t.snapshots = append(t.snapshots, snap)
	return snap
}

// Snapshots returns the recorded history in chronological order
func (t *Tracker) Snapshots() []backtest.Snapshot {
	return append([]backtest.Snapshot(nil), t.snapshots...)
}

// Len returns the number of recorded snapshots
func (t *Tracker) Len() int {
	return len(t.snapshots)
}

// Stats computes return statistics over the history. It reports false
// until two snapshots exist, since the first one has no prior to return
// against.
func (t *Tracker) Stats() (Stats, bool) {
	if len(t.snapshots) < 2 {
		return Stats{}, false
	}

	returns := make([]float64, 0, len(t.snapshots)-1)
	for _, s := range t.snapshots[1:] {
		returns = append(returns, s.DailyReturn*100)
	}

	stats := Stats{
		TotalDays:      len(returns),
		MaxDailyReturn: returns[0],
		MinDailyReturn: returns[0],
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
		stats.MaxDailyReturn = math.Max(stats.MaxDailyReturn, r)
		stats.MinDailyReturn = math.Min(stats.MinDailyReturn, r)
		if r > 0 {
			stats.PositiveDays++
		} else if r < 0 {
			stats.NegativeDays++
		}
	}
	stats.AvgDailyReturn = sum / float64(len(returns))
	stats.StdDailyReturn = sampleStdev(returns, stats.AvgDailyReturn)
	stats.DailyWinRate = float64(stats.PositiveDays) / float64(len(returns)) * 100
	return stats, true
}

func sampleStdev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
