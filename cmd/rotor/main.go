package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/quantbyte/rotor/internal/config"
)

const (
	appName = "rotor"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Rule-based capital rotation for a small momentum universe",
		Version: version,
		Long: `rotor scans a watchlist for technical catalysts, scores expected
returns, and rotates capital from weak holdings into stronger candidates.

Subcommands cover the full loop: scan the universe, evaluate and execute
rotations against a persisted portfolio, replay the strategy over
historical CSVs, and serve the latest results over HTTP.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd)
			cmd.Flags().Visit(func(f *pflag.Flag) {
				log.Debug().Str("flag", f.Name).Str("value", f.Value.String()).Msg("flag set")
			})
		},
		Run: runDefaultEntry,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to rotor.yaml (defaults apply when omitted)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newRotateCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// runDefaultEntry prints usage guidance; there is no interactive surface
func runDefaultEntry(cmd *cobra.Command, args []string) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		_ = cmd.Help()
		return
	}
	fmt.Fprintf(os.Stderr, "rotor requires a subcommand in non-interactive use:\n\n")
	fmt.Fprintf(os.Stderr, "  rotor scan --data-dir data/\n")
	fmt.Fprintf(os.Stderr, "  rotor rotate --data-dir data/ --state rotor_state.json\n")
	fmt.Fprintf(os.Stderr, "  rotor backtest --data-dir data/ --start 2024-01-02 --end 2024-12-31\n")
	fmt.Fprintf(os.Stderr, "  rotor serve --data-dir data/\n\n")
	fmt.Fprintf(os.Stderr, "  rotor --help\n")
	os.Exit(2)
}

// loadConfig resolves the runtime configuration from --config or defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func configureLogging(cmd *cobra.Command) {
	level := zerolog.InfoLevel
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		parsed, err := zerolog.ParseLevel(s)
		if err != nil {
			log.Warn().Str("log_level", s).Msg("unknown log level, keeping info")
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
