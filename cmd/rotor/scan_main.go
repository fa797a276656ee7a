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
	"github.com/quantbyte/rotor/internal/universe"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the universe for catalysts and score expected returns",
		Long: `Loads the watchlist, fetches price history from the CSV data
directory, runs the catalyst scanner over every instrument, and prints the
scored ranking.`,
		RunE: runScan,
	}
	cmd.Flags().String("data-dir", "data", "Directory of <SYMBOL>.csv history files")
	cmd.Flags().String("as-of", "", "Evaluate as of this date (YYYY-MM-DD, default today)")
	cmd.Flags().Int("top", 0, "Print only the top N results (0 = all)")
	cmd.Flags().Bool("json", false, "Emit JSON instead of a table")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	top, _ := cmd.Flags().GetInt("top")
	asJSON, _ := cmd.Flags().GetBool("json")

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

	log.Info().Int("symbols", uni.Len()).Time("as_of", asOf).Msg("starting scan")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stack := buildDataStack(cfg, feed, asOf)
	outcomes, _ := runScanPipeline(ctx, cfg, uni.Symbols, stack)

	if top > 0 && len(outcomes) > top {
		outcomes = outcomes[:top]
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcomes)
	}

	printScanTable(outcomes, asOf)
	return nil
}

func printScanTable(outcomes []scanOutcome, asOf time.Time) {
	fmt.Printf("Scan results as of %s\n\n", asOf.Format("2006-01-02"))
	fmt.Printf("%-6s %8s %9s %9s %8s %8s  %s\n",
		"SYMBOL", "EXP.RET", "CATALYST", "MOMENTUM", "UPSIDE", "TIMING", "SIGNALS")
	for _, o := range outcomes {
		s := o.Score
		fmt.Printf("%-6s %8.3f %9.3f %9.3f %8.3f %8.2f  %d\n",
			s.Symbol, s.ExpectedReturn, s.CatalystScore, s.MomentumScore,
			s.UpsideScore, s.TimingScore, len(o.Profile.Signals))
	}
}
