package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer persists run artifacts under outputDir/<run-id>/
type Writer struct {
	outputDir string
}

// NewWriter creates an artifact writer rooted at outputDir
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Write persists results.json and report.md for the run and returns the
// run's artifact directory
func (w *Writer) Write(results *Results) (string, error) {
	runDir := filepath.Join(w.outputDir, results.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := w.writeJSON(runDir, results); err != nil {
		return "", err
	}
	if err := w.writeReport(runDir, results); err != nil {
		return "", err
	}
	return runDir, nil
}

func (w *Writer) writeJSON(runDir string, results *Results) error {
	file, err := os.Create(filepath.Join(runDir, "results.json"))
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func (w *Writer) writeReport(runDir string, results *Results) error {
	report := generateReport(results)
	if err := os.WriteFile(filepath.Join(runDir, "report.md"), []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func generateReport(results *Results) string {
	var b strings.Builder
	cfg := results.Config
	m := results.Metrics

	b.WriteString("# Rotation Backtest Report\n\n")
	b.WriteString(fmt.Sprintf("**Run**: %s\n", results.RunID))
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", results.FinishedAt.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Period**: %s to %s (%s rebalance)\n",
		cfg.Start.Format("2006-01-02"), cfg.End.Format("2006-01-02"), cfg.Cadence))
	b.WriteString(fmt.Sprintf("**Universe**: %d symbols, max %d positions, %.0f%% of cash per entry\n\n",
		len(cfg.Universe), cfg.MaxPositions, cfg.PositionSizePercent*100))

	b.WriteString("## Performance\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| Total return | %.2f%% |\n", m.TotalReturnPercent))
	b.WriteString(fmt.Sprintf("| CAGR | %.2f%% |\n", m.CAGR*100))
	b.WriteString(fmt.Sprintf("| Annualized volatility | %.2f%% |\n", m.AnnualizedVolatility*100))
	b.WriteString(fmt.Sprintf("| Sharpe | %.2f |\n", m.SharpeRatio))
	b.WriteString(fmt.Sprintf("| Sortino | %.2f |\n", m.SortinoRatio))
	b.WriteString(fmt.Sprintf("| Max drawdown | %.2f%% |\n", m.MaxDrawdownPercent))
	b.WriteString(fmt.Sprintf("| Calmar | %.2f |\n", m.CalmarRatio))
	if results.BenchmarkReturnPercent != nil {
		b.WriteString(fmt.Sprintf("| Benchmark (%s) buy-hold | %.2f%% |\n",
			cfg.BenchmarkSymbol, *results.BenchmarkReturnPercent))
	}
	b.WriteString("\n")

	b.WriteString("## Trades\n\n")
	b.WriteString(fmt.Sprintf("- **Closed positions**: %d (%d wins, %d losses)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades))
	b.WriteString(fmt.Sprintf("- **Win rate**: %.1f%%\n", m.WinRate))
	b.WriteString(fmt.Sprintf("- **Profit factor**: %.2f\n", m.ProfitFactor))
	b.WriteString(fmt.Sprintf("- **Avg win / avg loss**: %.2f / %.2f\n\n", m.AvgWin, m.AvgLoss))

	if len(results.ClosedPositions) > 0 {
		b.WriteString("### Closed Positions\n\n")
		b.WriteString("| Symbol | Entry | Exit | P&L % | Reason |\n")
		b.WriteString("|--------|-------|------|-------|--------|\n")
		for _, c := range results.ClosedPositions {
			b.WriteString(fmt.Sprintf("| %s | %s @ %.2f | %s @ %.2f | %.2f%% | %s |\n",
				c.Symbol,
				c.EntryDate.Format("2006-01-02"), c.EntryPrice,
				c.ExitDate.Format("2006-01-02"), c.ExitPrice,
				c.PnLPercent, c.Reason))
		}
		b.WriteString("\n")
	}

	if n := len(results.Snapshots); n > 0 {
		b.WriteString("## Equity Curve\n\n")
		b.WriteString("| Date | Value | Cash | Daily | Cumulative |\n")
		b.WriteString("|------|-------|------|-------|------------|\n")
		for _, s := range sampleSnapshots(results.Snapshots, 30) {
			b.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f%% | %.2f%% |\n",
				s.Date.Format("2006-01-02"), s.TotalValue, s.Cash,
				s.DailyReturn*100, s.CumulativeReturn*100))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("_Elapsed: %s_\n",
		results.FinishedAt.Sub(results.StartedAt).Round(time.Millisecond)))
	return b.String()
}

// sampleSnapshots thins a long series for the report, always keeping the
// first and last rows
func sampleSnapshots(snapshots []Snapshot, max int) []Snapshot {
	if len(snapshots) <= max {
		return snapshots
	}
	stride := (len(snapshots) + max - 1) / max
	out := make([]Snapshot, 0, max+1)
	for i := 0; i < len(snapshots); i += stride {
		out = append(out, snapshots[i])
	}
	if last := snapshots[len(snapshots)-1]; out[len(out)-1].Date != last.Date {
		out = append(out, last)
	}
	return out
}
