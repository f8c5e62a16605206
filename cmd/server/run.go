package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"u8sim/internal/debugview"
	"u8sim/internal/persistence/archive"
	"u8sim/internal/sim/scenario"
	"u8sim/internal/sim/world"
)

var (
	flagScenario string
	flagTicks    int
	flagView     bool
	flagPersist  bool
	flagSlot     string
	flagResume   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply a scenario and step the world",
	Long: `Populate a fresh world from a scenario file (or resume a save), run its
intrinsic steps and then step the world. With --view the world runs at its
tick rate in a terminal map until q is pressed.

Examples:
  server run --ticks 600
  server run --scenario ./configs/scenario.yaml --persist --slot demo
  server run --resume ./data/worlds/world_1/autosaves/2400.u8s --ticks 100
  server run --view`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagScenario, "scenario", "", "Scenario file (default: <configs>/scenario.yaml)")
	runCmd.Flags().IntVar(&flagTicks, "ticks", 300, "Ticks to step after the scenario")
	runCmd.Flags().BoolVar(&flagView, "view", false, "Show the world in the terminal viewer")
	runCmd.Flags().BoolVar(&flagPersist, "persist", false, "Write the tick log, autosaves and index under --data")
	runCmd.Flags().StringVar(&flagSlot, "slot", "", "Copy the final save into this named slot (implies --persist)")
	runCmd.Flags().StringVar(&flagResume, "resume", "", "Resume from a save instead of a scenario")
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	persist := flagPersist || flagSlot != ""
	rt, err := newRuntime(logger, flagResume, persist)
	if err != nil {
		return err
	}
	defer rt.Close()
	w := rt.World

	scripts := world.NewScriptTable()
	w.SetUsecode(scripts)

	if flagResume == "" {
		path := flagScenario
		if path == "" {
			path = filepath.Join(flagConfigDir, "scenario.yaml")
		}
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		_, results, err := sc.Run(w)
		for _, r := range results {
			logger.Info("step", "n", r.Step, "intrinsic", r.Name, "result", r.Value)
		}
		if err != nil {
			return err
		}
		logger.Info("scenario applied", "name", sc.Name, "tick", w.CurrentTick())
	}

	go rt.writeSnapshots(ctx)

	if flagView {
		if err := runView(ctx, rt); err != nil {
			return err
		}
	} else {
		func() {
			defer reportPanic(flagWorldID, w.PublishedTick)
			for range flagTicks {
				if ctx.Err() != nil {
					return
				}
				w.StepOnce()
			}
		}()
	}

	snap, err := w.ExportSnapshot()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tick %d digest %s objects %d processes %d events %d\n",
		snap.Header.Tick, snap.Header.Digest, snap.Header.Objects, snap.Header.Processes, len(scripts.Calls()))

	if !persist {
		return nil
	}
	path, err := rt.saveSnapshot(snap)
	if err != nil {
		return err
	}
	if flagSlot != "" {
		dst, err := archive.ArchiveSlot(rt.worldDir, flagSlot, path, snap.Header)
		if err != nil {
			return err
		}
		logger.Info("slot written", "slot", flagSlot, "path", dst)
	}
	return nil
}

// runView runs the world loop and draws it until the viewer quits.
func runView(ctx context.Context, rt *runtime) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	w := rt.World
	frames := make(chan []byte, 4)
	w.ObserverJoin() <- world.ObserverJoinRequest{
		SessionID:   "debugview",
		TickOut:     frames,
		ChunkRadius: 2,
		MaxItems:    1000,
	}

	done := make(chan error, 1)
	go func() {
		defer reportPanic(flagWorldID, w.PublishedTick)
		done <- w.Run(ctx)
	}()

	viewErr := debugview.New(screen, &rt.Cats.Shapes).Run(ctx, frames)
	cancel()
	<-done
	return viewErr
}
