package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantbyte/rotor/internal/backtest"
	"github.com/quantbyte/rotor/internal/universe"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the rotation strategy over historical CSV data",
		Long: `Simulates the scan, score, and rotate loop over a date range of
daily candles, then writes results.json and report.md under the output
directory. The simulation never reads candles beyond the rebalance date.`,
		RunE: runBacktest,
	}
	cmd.Flags().String("data-dir", "data", "Directory of <SYMBOL>.csv history files")
	cmd.Flags().String("start", "", "Simulation start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Simulation end date (YYYY-MM-DD)")
	cmd.Flags().String("cadence", "daily", "Rebalance cadence (daily|weekly|monthly)")
	cmd.Flags().Float64("capital", 100_000, "Initial capital")
	cmd.Flags().Int("max-positions", 1, "Maximum concurrent positions")
	cmd.Flags().Float64("size-pct", 0.90, "Fraction of available cash per new position")
	cmd.Flags().Float64("stop-loss", 0, "Intra-period stop loss percent, e.g. -15 (0 disables)")
	cmd.Flags().Float64("take-profit", 0, "Intra-period take profit percent, e.g. 25 (0 disables)")
	cmd.Flags().String("benchmark", "", "Buy-and-hold benchmark symbol")
	cmd.Flags().String("out", "out/backtest", "Artifact output directory")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")
	cadenceFlag, _ := cmd.Flags().GetString("cadence")
	capital, _ := cmd.Flags().GetFloat64("capital")
	maxPositions, _ := cmd.Flags().GetInt("max-positions")
	sizePct, _ := cmd.Flags().GetFloat64("size-pct")
	benchmark, _ := cmd.Flags().GetString("benchmark")
	outDir, _ := cmd.Flags().GetString("out")

	start, err := parseDateFlag("start", startFlag)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", endFlag)
	if err != nil {
		return err
	}
	cadence, err := backtest.ParseCadence(cadenceFlag)
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

	btCfg := &backtest.Config{
		Start:               start,
		End:                 end,
		InitialCapital:      capital,
		Cadence:             cadence,
		Universe:            uni.Symbols,
		MaxPositions:        maxPositions,
		PositionSizePercent: sizePct,
		BenchmarkSymbol:     benchmark,
		Scorer:              &cfg.Scoring,
	}
	if cmd.Flags().Changed("stop-loss") {
		v, _ := cmd.Flags().GetFloat64("stop-loss")
		btCfg.StopLossPercent = &v
	}
	if cmd.Flags().Changed("take-profit") {
		v, _ := cmd.Flags().GetFloat64("take-profit")
		btCfg.TakeProfitPercent = &v
	}

	runner, err := backtest.NewRunner(btCfg, feed)
	if err != nil {
		return err
	}

	log.Info().
		Time("start", start).Time("end", end).
		Str("cadence", cadence.String()).
		Int("symbols", uni.Len()).
		Msg("starting backtest")

	results, err := runner.Run()
	if err != nil {
		return err
	}

	dir, err := backtest.NewWriter(outDir).Write(results)
	if err != nil {
		return err
	}

	printBacktestSummary(results, dir)
	return nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("--%s is required (YYYY-MM-DD)", name)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, want YYYY-MM-DD: %w", name, value, err)
	}
	return t, nil
}

func printBacktestSummary(results *backtest.Results, dir string) {
	m := results.Metrics
	fmt.Printf("Backtest %s complete\n\n", results.RunID)
	fmt.Printf("  Total return      %8.2f%%\n", m.TotalReturnPercent)
	fmt.Printf("  CAGR              %8.2f%%\n", m.CAGR*100)
	fmt.Printf("  Max drawdown      %8.2f%%\n", m.MaxDrawdownPercent)
	fmt.Printf("  Sharpe            %8.2f\n", m.SharpeRatio)
	fmt.Printf("  Sortino           %8.2f\n", m.SortinoRatio)
	fmt.Printf("  Win rate          %8.2f%% (%d trades)\n", m.WinRate, m.TotalTrades)
	if results.BenchmarkReturnPercent != nil {
		fmt.Printf("  Benchmark return  %8.2f%%\n", *results.BenchmarkReturnPercent)
	}
	fmt.Printf("\nArtifacts written to %s\n", dir)
}
