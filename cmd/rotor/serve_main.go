package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantbyte/rotor/internal/backtest"
	"github.com/quantbyte/rotor/internal/data"
	api "github.com/quantbyte/rotor/internal/interfaces/http"
	"github.com/quantbyte/rotor/internal/metrics"
	"github.com/quantbyte/rotor/internal/portfolio"
	"github.com/quantbyte/rotor/internal/scoring"
	"github.com/quantbyte/rotor/internal/universe"
)

const shutdownGracePeriod = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest scan results and portfolio snapshot over HTTP",
		Long: `Runs one scan over the universe, publishes the scored ranking and,
when a state file exists, the portfolio snapshot, then serves them read-only
under /v1 alongside /health and Prometheus /metrics.`,
		RunE: runServe,
	}
	cmd.Flags().String("data-dir", "data", "Directory of <SYMBOL>.csv history files")
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().String("as-of", "", "Evaluate as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	addr, _ := cmd.Flags().GetString("addr")
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	if addr == "" {
		addr = cfg.HTTP.ListenAddr
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	state := api.NewState()

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	stack := buildDataStack(cfg, feed, asOf)
	timer := registry.StartStepTimer("scan")
	outcomes, _ := runScanPipeline(scanCtx, cfg, uni.Symbols, stack)
	timer.Stop("success")
	registry.ScansTotal.Inc()
	registry.ScoresComputed.Add(float64(len(outcomes)))
	recordDataMetrics(registry, stack, uni.Len(), len(outcomes))

	scores := make([]scoring.Score, 0, len(outcomes))
	for _, o := range outcomes {
		scores = append(scores, o.Score)
	}
	state.PublishScores(scores, asOf)

	p := publishPortfolioIfPresent(cfg.StateFile, cfg.InitialCapital, state, registry, asOf)
	if p != nil && cfg.Data.StreamURL != "" {
		go followPriceStream(ctx, cfg.Data.StreamURL, p, state, registry)
	}

	server := api.NewServer(addr, state, registry)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

// publishPortfolioIfPresent loads the persisted portfolio when the state
// file exists; serving without one is fine, /v1/portfolio returns 404
func publishPortfolioIfPresent(path string, initialCapital float64, state *api.State, registry *metrics.Registry, asOf time.Time) *portfolio.Portfolio {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("no state file, portfolio endpoint will be empty")
		return nil
	}
	p, err := loadPortfolio(path, initialCapital)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to load portfolio state")
		return nil
	}
	state.PublishPortfolio(p.State(), asOf)
	registry.ObservePortfolio(p.TotalValue(), p.NumPositions())
	return p
}

// followPriceStream re-marks the served portfolio from live ticks. Only this
// goroutine touches the portfolio once serving starts.
func followPriceStream(ctx context.Context, url string, p *portfolio.Portfolio, state *api.State, registry *metrics.Registry) {
	updates := make(chan data.PriceUpdate, 64)
	stream := data.NewStream(url, updates)

	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("price stream stopped")
		}
		close(updates)
	}()

	for update := range updates {
		p.UpdatePrices(map[string]float64{update.Symbol: update.Price})
		state.PublishPortfolio(p.State(), update.Time)
		registry.ObservePortfolio(p.TotalValue(), p.NumPositions())
	}
}
