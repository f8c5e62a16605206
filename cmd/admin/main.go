// admin inspects and drives a u8sim world from the outside.
//
// Usage:
//
//	admin saves                 - list autosaves and save slots
//	admin inspect <path|slot>   - print a save header
//	admin db snapshots|ticks|catalogs
//	admin state                 - GET /admin/v1/state from a running server
//	admin snapshot [--slot s]   - POST /admin/v1/snapshot
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagDataDir  string
	flagWorldID  string
	flagURL      string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Inspect saves, the world index and a running u8sim server",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data", "./data", "Runtime data directory")
	rootCmd.PersistentFlags().StringVar(&flagWorldID, "world", "world_1", "World id")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "http://127.0.0.1:8080", "Server base url")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(savesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func worldDir() string {
	return filepath.Join(flagDataDir, "worlds", flagWorldID)
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		TimeFormat: time.TimeOnly,
		Prefix:     "admin",
	})
	if lvl, err := log.ParseLevel(flagLogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
