// server runs a u8sim world.
//
// Usage:
//
//	server run     - apply a scenario and step it headless (or in the terminal viewer)
//	server serve   - run the world loop with the observer and admin HTTP endpoints
//
// Global flags:
//
//	--configs <dir>   - shapes.json, firetypes.json, tuning.yaml, scenario.yaml
//	--data <dir>      - tick logs, autosaves, save slots and the index db
//	--world <id>      - world id
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
)

var (
	flagConfigDir string
	flagDataDir   string
	flagWorldID   string
	flagTuning    string
	flagRuleset   string
	flagLogLevel  string
	flagNoIndex   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Run an Ultima 8 / Crusader item and process simulation",
	Long: `server hosts one simulated world: items, containers, actors and the
processes that move them, stepped at the tuned tick rate.

Examples:
  server run --ticks 300
  server run --view
  server serve --addr 127.0.0.1:8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initSentry()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		sentry.Flush(2 * time.Second)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "configs", "./configs", "Config directory")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data", "./data", "Runtime data directory")
	rootCmd.PersistentFlags().StringVar(&flagWorldID, "world", "world_1", "World id")
	rootCmd.PersistentFlags().StringVar(&flagTuning, "tuning", "", "Path to tuning.yaml (default: <configs>/tuning.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagRuleset, "ruleset", "", "Override the tuned ruleset (u8, crusader, regret)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoIndex, "no-index", false, "Do not write the sqlite index")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "u8sim",
	})
	if lvl, err := log.ParseLevel(flagLogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// initSentry enables crash reporting when SENTRY_DSN is set.
func initSentry() error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: os.Getenv("DEPLOY_ENV"),
		Release:     "u8sim",
	})
}
