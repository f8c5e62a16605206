// replay re-runs a saved world and checks every tick against the digests
// recorded while it originally ran.
//
// Usage:
//
//	replay --world world_1                 - newest autosave against the tick log
//	replay --snapshot path.u8s --source index --to 900
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"u8sim/internal/persistence/archive"
	"u8sim/internal/persistence/indexdb"
	persistlog "u8sim/internal/persistence/log"
	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

var (
	flagConfigDir string
	flagDataDir   string
	flagWorldID   string
	flagSnapshot  string
	flagSource    string
	flagTo        uint64
	flagLogLevel  string
)

// ErrDigestMismatch is returned when a replayed tick does not reproduce
// the recorded state.
var ErrDigestMismatch = errors.New("digest mismatch")

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "replay",
	Short:        "Verify that a save replays to the recorded tick digests",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
			if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Release: "u8sim"}); err != nil {
				return err
			}
			defer sentry.Flush(2 * time.Second)
		}
		logger := log.NewWithOptions(os.Stderr, log.Options{TimeFormat: time.TimeOnly, Prefix: "replay"})
		if lvl, err := log.ParseLevel(flagLogLevel); err == nil {
			logger.SetLevel(lvl)
		}
		err := run(logger)
		if err != nil && errors.Is(err, ErrDigestMismatch) {
			sentry.CaptureException(err)
		}
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagConfigDir, "configs", "./configs", "Config directory")
	rootCmd.Flags().StringVar(&flagDataDir, "data", "./data", "Runtime data directory")
	rootCmd.Flags().StringVar(&flagWorldID, "world", "world_1", "World id")
	rootCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "Save to start from (default: newest autosave)")
	rootCmd.Flags().StringVar(&flagSource, "source", "log", "Recorded digests: log (tick log) or index (sqlite)")
	rootCmd.Flags().Uint64Var(&flagTo, "to", 0, "Stop after this tick (default: last recorded)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func run(logger *log.Logger) error {
	worldDir := filepath.Join(flagDataDir, "worlds", flagWorldID)
	path := flagSnapshot
	if path == "" {
		ticks, err := archive.Autosaves(worldDir)
		if err != nil {
			return err
		}
		if len(ticks) == 0 {
			return fmt.Errorf("no autosaves under %s", worldDir)
		}
		path = archive.AutosavePath(worldDir, ticks[0])
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	logger.Info("snapshot", "path", path, "world", snap.Header.WorldID, "game", snap.Header.Game,
		"tick", snap.Header.Tick, "objects", snap.Header.Objects, "processes", snap.Header.Processes)

	expected, err := loadDigests(worldDir, snap.Header.Tick+1)
	if err != nil {
		return fmt.Errorf("load digests: %w", err)
	}
	if len(expected) == 0 {
		return fmt.Errorf("no recorded ticks after %d", snap.Header.Tick)
	}

	cats, err := catalogs.Load(flagConfigDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	if snap.ShapesDigest != "" && snap.ShapesDigest != cats.Shapes.Digest {
		logger.Warn("shapes.json differs from the one the save was made with")
	}
	if snap.FireTypesDigest != "" && snap.FireTypesDigest != cats.FireTypes.Digest {
		logger.Warn("firetypes.json differs from the one the save was made with")
	}

	w, err := restore(snap, cats)
	if err != nil {
		return err
	}
	w.SetLogger(logger.WithPrefix("world"))

	to := flagTo
	if to == 0 {
		for t := range expected {
			to = max(to, t)
		}
	}
	checked, err := verify(w, expected, to)
	if err != nil {
		return err
	}
	logger.Info("replay ok", "checked", checked, "from", snap.Header.Tick, "to", w.CurrentTick())
	return nil
}

// restore builds a world under the save's ruleset and loads the save into it.
func restore(snap snapshot.SnapshotV1, cats *catalogs.Catalogs) (*world.World, error) {
	tune, err := tuning.Load(filepath.Join(flagConfigDir, "tuning.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	tune.Ruleset = snap.Ruleset

	w, err := world.New(world.WorldConfig{ID: snap.Header.WorldID, Tuning: tune}, cats)
	if err != nil {
		return nil, err
	}
	w.SetUsecode(world.NewScriptTable())
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return w, nil
}

// loadDigests returns the recorded digest of every tick >= from.
func loadDigests(worldDir string, from uint64) (map[uint64]string, error) {
	out := map[uint64]string{}
	switch flagSource {
	case "log":
		entries, err := persistlog.ReadTicks(worldDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if uint64(e.Tick) >= from {
				out[uint64(e.Tick)] = e.Digest
			}
		}
	case "index":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, err
		}
		defer idx.Close()
		rows, err := idx.Ticks(from, ^uint64(0)>>1)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.Tick] = r.Digest
		}
	default:
		return nil, fmt.Errorf("unknown source %q", flagSource)
	}
	return out, nil
}

// verify steps w until tick to, comparing each tick that has a recorded
// digest. Ticks without one are stepped but not checked.
func verify(w *world.World, expected map[uint64]string, to uint64) (checked int, err error) {
	for uint64(w.CurrentTick()) < to {
		tick, digest := w.StepOnce()
		want, ok := expected[uint64(tick)]
		if !ok {
			continue
		}
		if want != digest {
			return checked, fmt.Errorf("%w at tick %d: recorded %s, replayed %s", ErrDigestMismatch, tick, want, digest)
		}
		checked++
	}
	return checked, nil
}
