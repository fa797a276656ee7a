package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantbyte/rotor/internal/scoring"
)

// Runner simulates the rotation strategy over historical data. One Runner,
// one run: state is rebuilt on every Run call, so reruns are independent.
type Runner struct {
	cfg    *Config
	feed   HistoricalFeed
	scorer *scoring.Scorer
}

// NewRunner validates the config and builds a simulator over the feed
func NewRunner(cfg *Config, feed HistoricalFeed) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	return &Runner{
		cfg:    cfg,
		feed:   feed,
		scorer: scoring.NewScorer(cfg.Scorer),
	}, nil
}

type runState struct {
	cash      float64
	positions map[string]*Position
	closed    []ClosedPosition
	snapshots []Snapshot
	prevValue float64
}

// Run executes the simulation and returns the full results artifact
func (r *Runner) Run() (*Results, error) {
	results := &Results{
		RunID:     uuid.NewString(),
		Config:    r.cfg,
		StartedAt: time.Now().UTC(),
	}

	state := &runState{
		cash:      r.cfg.InitialCapital,
		positions: make(map[string]*Position),
		prevValue: r.cfg.InitialCapital,
	}

	dates := r.rebalanceDates()
	log.Info().Str("run_id", results.RunID).
		Str("cadence", r.cfg.Cadence.String()).
		Int("dates", len(dates)).
		Int("universe", len(r.cfg.Universe)).
		Msg("backtest starting")

	for _, date := range dates {
		r.step(state, date)
	}

	// Force-close whatever is still open at the end date
	finalDate := dates[len(dates)-1]
	for _, symbol := range heldSymbols(state.positions) {
		pos := state.positions[symbol]
		r.closePosition(state, pos, pos.CurrentPrice, finalDate, ExitEndOfPeriod)
	}

	results.Snapshots = state.snapshots
	results.ClosedPositions = state.closed
	results.Metrics = computeMetrics(r.cfg, state.snapshots, state.closed)
	results.BenchmarkReturnPercent = r.benchmarkReturn(dates)
	results.FinishedAt = time.Now().UTC()

	log.Info().Str("run_id", results.RunID).
		Float64("total_return_pct", results.Metrics.TotalReturnPercent).
		Int("trades", results.Metrics.TotalTrades).
		Msg("backtest finished")
	return results, nil
}

// step runs one rebalance date: mark-to-market, threshold exits, score, rank,
// rebalance closes, sized opens, snapshot
func (r *Runner) step(state *runState, date time.Time) {
	r.markToMarket(state, date)
	r.applyThresholdExits(state, date)

	scores := r.scoreUniverse(date)
	target := topN(scores, r.cfg.MaxPositions)

	for _, symbol := range heldSymbols(state.positions) {
		if _, keep := target[symbol]; !keep {
			pos := state.positions[symbol]
			r.closePosition(state, pos, pos.CurrentPrice, date, ExitRebalance)
		}
	}

	r.openTargets(state, target, date)
	r.recordSnapshot(state, date)
}

func (r *Runner) markToMarket(state *runState, date time.Time) {
	for _, symbol := range heldSymbols(state.positions) {
		price, err := r.feed.PriceAt(symbol, date)
		if err != nil {
			// Keep the stale mark; the position is revisited next date
			log.Warn().Str("symbol", symbol).Time("date", date).
				Msg("no price for open position, keeping last mark")
			continue
		}
		state.positions[symbol].CurrentPrice = price
	}
}

func (r *Runner) applyThresholdExits(state *runState, date time.Time) {
	if r.cfg.StopLossPercent == nil && r.cfg.TakeProfitPercent == nil {
		return
	}
	for _, symbol := range heldSymbols(state.positions) {
		pos := state.positions[symbol]
		pnl := pos.PnLPercent()
		switch {
		case r.cfg.StopLossPercent != nil && pnl <= *r.cfg.StopLossPercent:
			r.closePosition(state, pos, pos.CurrentPrice, date, ExitStopLoss)
		case r.cfg.TakeProfitPercent != nil && pnl >= *r.cfg.TakeProfitPercent:
			r.closePosition(state, pos, pos.CurrentPrice, date, ExitTakeProfit)
		}
	}
}

// scoreUniverse scores every candidate with a neutral catalyst profile: the
// simulator has no live catalyst feed
func (r *Runner) scoreUniverse(date time.Time) map[string]float64 {
	scores := make(map[string]float64, len(r.cfg.Universe))
	for _, symbol := range r.cfg.Universe {
		series, err := r.feed.SeriesUpTo(symbol, date)
		if err != nil {
			continue
		}
		scores[symbol] = r.scorer.Score(symbol, series, nil, nil).ExpectedReturn
	}
	return scores
}

// topN selects the highest-scored symbols. Ties break alphabetically so a
// fixed input always produces the same holding set.
func topN(scores map[string]float64, n int) map[string]float64 {
	ranked := make([]string, 0, len(scores))
	for symbol := range scores {
		ranked = append(ranked, symbol)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	target := make(map[string]float64, len(ranked))
	for _, symbol := range ranked {
		target[symbol] = scores[symbol]
	}
	return target
}

func (r *Runner) openTargets(state *runState, target map[string]float64, date time.Time) {
	symbols := make([]string, 0, len(target))
	for symbol := range target {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if _, held := state.positions[symbol]; held {
			continue
		}
		price, err := r.feed.PriceAt(symbol, date)
		if err != nil || price <= 0 {
			continue
		}
		budget := state.cash * r.cfg.PositionSizePercent
		shares := int64(budget / price)
		if shares == 0 {
			continue
		}
		cost := float64(shares) * price
		if cost > state.cash {
			continue
		}
		state.cash -= cost
		state.positions[symbol] = &Position{
			Symbol:       symbol,
			Shares:       shares,
			EntryPrice:   price,
			EntryDate:    date,
			CurrentPrice: price,
		}
	}
}

func (r *Runner) closePosition(state *runState, pos *Position, price float64, date time.Time, reason ExitReason) {
	proceeds := float64(pos.Shares) * price
	state.cash += proceeds
	delete(state.positions, pos.Symbol)

	pnl := proceeds - float64(pos.Shares)*pos.EntryPrice
	pnlPct := 0.0
	if pos.EntryPrice > 0 {
		pnlPct = (price - pos.EntryPrice) / pos.EntryPrice * 100
	}
	state.closed = append(state.closed, ClosedPosition{
		Symbol:     pos.Symbol,
		Shares:     pos.Shares,
		EntryPrice: pos.EntryPrice,
		EntryDate:  pos.EntryDate,
		ExitPrice:  price,
		ExitDate:   date,
		Reason:     reason,
		PnL:        pnl,
		PnLPercent: pnlPct,
	})
}

func (r *Runner) recordSnapshot(state *runState, date time.Time) {
	value := state.cash
	positions := make([]Position, 0, len(state.positions))
	for _, symbol := range heldSymbols(state.positions) {
		pos := state.positions[symbol]
		value += pos.Value()
		positions = append(positions, *pos)
	}

	daily := 0.0
	if state.prevValue > 0 {
		daily = (value - state.prevValue) / state.prevValue
	}
	cumulative := 0.0
	if r.cfg.InitialCapital > 0 {
		cumulative = (value - r.cfg.InitialCapital) / r.cfg.InitialCapital
	}

	state.snapshots = append(state.snapshots, Snapshot{
		Date:             date,
		TotalValue:       value,
		Cash:             state.cash,
		Positions:        positions,
		DailyReturn:      daily,
		CumulativeReturn: cumulative,
	})
	state.prevValue = value
}

// rebalanceDates generates the ordered date sequence from start to end
// inclusive at the configured cadence
func (r *Runner) rebalanceDates() []time.Time {
	var dates []time.Time
	for d := r.cfg.Start; !d.After(r.cfg.End); d = r.cfg.Cadence.next(d) {
		dates = append(dates, d)
	}
	return dates
}

// benchmarkReturn computes the buy-and-hold return of the benchmark symbol
// over the run window, nil when unconfigured or the data is missing
func (r *Runner) benchmarkReturn(dates []time.Time) *float64 {
	if r.cfg.BenchmarkSymbol == "" || len(dates) == 0 {
		return nil
	}
	first, err := r.feed.PriceAt(r.cfg.BenchmarkSymbol, dates[0])
	if err != nil || first <= 0 {
		return nil
	}
	last, err := r.feed.PriceAt(r.cfg.BenchmarkSymbol, dates[len(dates)-1])
	if err != nil {
		return nil
	}
	pct := (last - first) / first * 100
	return &pct
}

func heldSymbols(positions map[string]*Position) []string {
	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
