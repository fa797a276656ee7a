package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantbyte/rotor/internal/backtest"
	"github.com/quantbyte/rotor/internal/catalyst"
	"github.com/quantbyte/rotor/internal/config"
	"github.com/quantbyte/rotor/internal/market"
	"github.com/quantbyte/rotor/internal/metrics"
	"github.com/quantbyte/rotor/internal/performance"
	"github.com/quantbyte/rotor/internal/persistence"
	"github.com/quantbyte/rotor/internal/persistence/postgres"
	"github.com/quantbyte/rotor/internal/portfolio"
	"github.com/quantbyte/rotor/internal/rotation"
	"github.com/quantbyte/rotor/internal/sizing"
	"github.com/quantbyte/rotor/internal/universe"
)

func newRotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Evaluate and execute rotations against the persisted portfolio",
		Long: `Loads the portfolio state file, rescans the universe, marks
positions to market, and applies rotation decisions: stop losses first, then
score-differential rotations, then the portfolio-wide circuit breaker. The
updated state is written back; trades are optionally mirrored to Postgres.`,
		RunE: runRotate,
	}
	cmd.Flags().String("data-dir", "data", "Directory of <SYMBOL>.csv history files")
	cmd.Flags().String("state", "", "Portfolio state file (default from config)")
	cmd.Flags().String("history", "", "Performance history file (default from config)")
	cmd.Flags().String("as-of", "", "Evaluate as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().String("pg-dsn", "", "Mirror new trades to this Postgres DSN")
	cmd.Flags().Bool("dry-run", false, "Print decisions without executing them")
	return cmd
}

func runRotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	statePath, _ := cmd.Flags().GetString("state")
	historyPath, _ := cmd.Flags().GetString("history")
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	pgDSN, _ := cmd.Flags().GetString("pg-dsn")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if statePath == "" {
		statePath = cfg.StateFile
	}
	if historyPath == "" {
		historyPath = cfg.HistoryFile
	}
	if pgDSN == "" {
		pgDSN = cfg.Postgres.DSN
	}

	asOf, err := resolveAsOf(asOfFlag)
	if err != nil {
		return err
	}

	uni, err := universe.Load(cfg.UniverseFile)
	if err != nil {
		return err
	}
	feed, err := backtest.LoadCSVDir(dataDir)
	if err != nil {
		return err
	}
	p, err := loadPortfolio(statePath, cfg.InitialCapital)
	if err != nil {
		return err
	}
	tradesBefore := p.Ledger().Len()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	registry := metrics.NewRegistry()
	registry.ScansTotal.Inc()
	stack := buildDataStack(cfg, feed, asOf)

	timer := registry.StartStepTimer("scan")
	outcomes, seriesMap := runScanPipeline(ctx, cfg, uni.Symbols, stack)
	timer.Stop("success")
	registry.ScoresComputed.Add(float64(len(outcomes)))
	recordDataMetrics(registry, stack, uni.Len(), len(outcomes))

	scores := make(map[string]float64, len(outcomes))
	for _, o := range outcomes {
		scores[o.Score.Symbol] = o.Score.ExpectedReturn
	}
	prices := stack.fetcher.FetchPrices(ctx, uni.Symbols)
	p.UpdatePrices(prices)

	maybeEnterInitialPosition(cfg, p, outcomes, prices)

	engine := rotation.NewEngine(&cfg.Rotation)
	decisions := engine.Evaluate(p, scores)

	if dryRun {
		fmt.Printf("Would apply %d decision(s):\n", len(decisions))
		for _, d := range decisions {
			printDecision(d)
		}
		return nil
	}

	executed := engine.ExecuteAll(p, decisions, prices)
	for _, result := range executed {
		printDecision(result.Decision)
		registry.RotationsTotal.WithLabelValues(result.Decision.Reason.String()).Inc()
	}
	recordTradeMetrics(registry, p.Ledger().Trades()[tradesBefore:])
	registry.ObservePortfolio(p.TotalValue(), p.NumPositions())

	printExitAdvisories(p, seriesMap)
	printPortfolioSummary(p)

	if err := recordPerformance(historyPath, asOf, p); err != nil {
		return err
	}
	if err := savePortfolio(statePath, p); err != nil {
		return err
	}

	if pgDSN != "" {
		if err := mirrorTrades(ctx, pgDSN, p, tradesBefore); err != nil {
			// Persistence is best-effort; the state file is the source of truth
			log.Warn().Err(err).Msg("failed to mirror trades to postgres")
		}
	}
	return nil
}

// maybeEnterInitialPosition puts idle capital to work when nothing is held,
// sized by score confidence within the configured bounds
func maybeEnterInitialPosition(cfg *config.Config, p *portfolio.Portfolio, outcomes []scanOutcome, prices map[string]float64) {
	if p.NumPositions() > 0 || len(outcomes) == 0 {
		return
	}
	best := outcomes[0].Score
	price, ok := prices[best.Symbol]
	if !ok || price <= 0 {
		return
	}
	size := sizing.CalculatePositionSizeBounds(p.TotalValue(), price, best.ExpectedReturn,
		cfg.Sizing.MinAllocation, cfg.Sizing.MaxAllocation)
	if size.Shares == 0 {
		return
	}
	if p.AddPosition(best.Symbol, price, size.Shares, best.ExpectedReturn) {
		log.Info().Str("symbol", best.Symbol).Int64("shares", size.Shares).
			Float64("allocation", size.Allocation).Msg("opened initial position")
	}
}

// printExitAdvisories surfaces non-binding technical exit signals for every
// held position; the rotation engine alone decides forced exits
func printExitAdvisories(p *portfolio.Portfolio, seriesMap map[string]market.Series) {
	scanner := catalyst.NewScanner()
	for _, symbol := range p.Held() {
		series, ok := seriesMap[symbol]
		if !ok {
			continue
		}
		signal := scanner.ShouldExit(series, nil, negativeStreak(series))
		if signal.Triggered {
			fmt.Printf("advisory: %s %s (%s)\n", symbol, signal.Reason, signal.Detail)
		}
	}
}

func printDecision(d rotation.Decision) {
	switch d.Reason {
	case rotation.ReasonScoreDifferential:
		fmt.Printf("%s: %s -> %s (diff %.3f)\n", d.Reason, d.From, d.To, d.ScoreDifference)
	default:
		fmt.Printf("%s: liquidate %s\n", d.Reason, d.From)
	}
}

func printPortfolioSummary(p *portfolio.Portfolio) {
	fmt.Printf("\nPortfolio: value %.2f, cash %.2f (%.1f%%), positions %d\n",
		p.TotalValue(), p.Cash(), p.CashPercent(), p.NumPositions())
	fmt.Printf("Return %.2f%%, unrealized %.2f, realized %.2f, drawdown %.2f%%\n",
		p.TotalReturnPercent(), p.UnrealizedPnL(), p.RealizedPnL(), p.MaxDrawdownPercent())
	for _, pos := range p.Positions() {
		fmt.Printf("  %-6s %6d @ %.2f -> %.2f (%.2f%%)\n",
			pos.Symbol, pos.Shares, pos.EntryPrice, pos.CurrentPrice, pos.UnrealizedPnLPercent())
	}
}

// recordPerformance appends this run's snapshot to the history file and
// prints the accumulated return statistics
func recordPerformance(path string, asOf time.Time, p *portfolio.Portfolio) error {
	tracker, err := performance.Load(path)
	if err != nil {
		return err
	}
	tracker.Record(asOf, p)
	if stats, ok := tracker.Stats(); ok {
		printPerformanceStats(stats)
	}
	return tracker.Save(path)
}

func printPerformanceStats(stats performance.Stats) {
	fmt.Printf("\nPerformance over %d recorded runs:\n", stats.TotalDays)
	fmt.Printf("  avg %.3f%%, std %.3f%%, min %.3f%%, max %.3f%%\n",
		stats.AvgDailyReturn, stats.StdDailyReturn, stats.MinDailyReturn, stats.MaxDailyReturn)
	fmt.Printf("  %d up, %d down, daily win rate %.1f%%\n",
		stats.PositiveDays, stats.NegativeDays, stats.DailyWinRate)
}

func loadPortfolio(path string, initialCapital float64) (*portfolio.Portfolio, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Float64("capital", initialCapital).
			Msg("no state file, starting a fresh portfolio")
		return portfolio.New(initialCapital), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	var state portfolio.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return portfolio.FromState(state), nil
}

func savePortfolio(path string, p *portfolio.Portfolio) error {
	raw, err := json.MarshalIndent(p.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// mirrorTrades pushes trades appended during this run into the sink
func mirrorTrades(ctx context.Context, dsn string, p *portfolio.Portfolio, tradesBefore int) error {
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}
	var sink persistence.TradeSink = postgres.NewTradesRepo(db, 5*time.Second)

	trades := p.Ledger().Trades()
	if tradesBefore >= len(trades) {
		return nil
	}
	return sink.InsertBatch(ctx, trades[tradesBefore:])
}
