package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"

	"u8sim/internal/audio"
	"u8sim/internal/persistence/archive"
	"u8sim/internal/persistence/indexdb"
	persistlog "u8sim/internal/persistence/log"
	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

// keepAutosaves is how many autosaves survive pruning.
const keepAutosaves = 8

// runtime is a world plus the sinks that record it.
type runtime struct {
	World *world.World
	Audio *audio.Mixer
	Cats  *catalogs.Catalogs
	Tune  tuning.Tuning

	worldDir string
	tickLog  *persistlog.TickLogger
	idx      *indexdb.SQLiteIndex
	snapCh   chan snapshot.SnapshotV1
	log      *log.Logger
}

func loadTuning() (tuning.Tuning, error) {
	path := flagTuning
	if path == "" {
		path = filepath.Join(flagConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		tune, err = tuning.Defaults(), nil
	}
	if err != nil {
		return tune, err
	}
	if flagRuleset != "" {
		tune.Ruleset = flagRuleset
		if err := tune.Validate(); err != nil {
			return tune, err
		}
	}
	return tune, nil
}

// newRuntime builds the world, resuming from resumePath when it is set.
func newRuntime(logger *log.Logger, resumePath string, persist bool) (*runtime, error) {
	cats, err := catalogs.Load(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := loadTuning()
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}

	var snap *snapshot.SnapshotV1
	if resumePath != "" {
		s, err := snapshot.ReadSnapshot(resumePath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		if s.Header.WorldID != "" && s.Header.WorldID != flagWorldID {
			return nil, fmt.Errorf("snapshot world id mismatch: flag=%s snap=%s", flagWorldID, s.Header.WorldID)
		}
		// A save carries its own ruleset.
		tune.Ruleset = s.Ruleset
		snap = &s
	}

	w, err := world.New(world.WorldConfig{ID: flagWorldID, Tuning: tune}, cats)
	if err != nil {
		return nil, err
	}
	w.SetLogger(logger.WithPrefix("world"))
	if snap != nil {
		if err := w.ImportSnapshot(*snap); err != nil {
			return nil, fmt.Errorf("import snapshot: %w", err)
		}
		logger.Info("resumed", "snapshot", filepath.Base(resumePath), "tick", w.CurrentTick())
	}

	mix := audio.NewMixer(logger.WithPrefix("audio"))
	mix.Attach(w)

	rt := &runtime{
		World:    w,
		Audio:    mix,
		Cats:     cats,
		Tune:     tune,
		worldDir: filepath.Join(flagDataDir, "worlds", flagWorldID),
		log:      logger,
	}
	if !persist {
		return rt, nil
	}

	if err := os.MkdirAll(rt.worldDir, 0o755); err != nil {
		return nil, err
	}
	rt.tickLog = persistlog.NewTickLogger(rt.worldDir)
	if !flagNoIndex {
		idx, err := indexdb.OpenSQLite(filepath.Join(rt.worldDir, "index", "world.sqlite"))
		if err != nil {
			rt.tickLog.Close()
			return nil, fmt.Errorf("open index: %w", err)
		}
		if err := idx.UpsertCatalogs(flagConfigDir, cats, tune); err != nil {
			logger.Warn("index: upsert catalogs", "err", err)
		}
		rt.idx = idx
	}
	w.SetTickLogger(fanoutTickLogger{rt.tickLog, rt.idx})

	rt.snapCh = make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(rt.snapCh)
	return rt, nil
}

// writeSnapshots persists snapshots handed over by the world loop until
// ctx ends.
func (rt *runtime) writeSnapshots(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-rt.snapCh:
			if _, err := rt.saveSnapshot(snap); err != nil {
				rt.log.Error("snapshot write", "tick", snap.Header.Tick, "err", err)
			}
		}
	}
}

func (rt *runtime) saveSnapshot(snap snapshot.SnapshotV1) (string, error) {
	path := archive.AutosavePath(rt.worldDir, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if rt.idx != nil {
		rt.idx.RecordSnapshot(path, snap)
	}
	if n, err := archive.PruneAutosaves(rt.worldDir, keepAutosaves); err != nil {
		rt.log.Warn("prune autosaves", "err", err)
	} else if n > 0 {
		rt.log.Debug("pruned autosaves", "removed", n)
	}
	rt.log.Info("saved", "tick", snap.Header.Tick, "digest", snap.Header.Digest)
	return path, nil
}

func (rt *runtime) Close() {
	if rt.tickLog != nil {
		if err := rt.tickLog.Close(); err != nil {
			rt.log.Warn("tick log close", "err", err)
		}
	}
	if rt.idx != nil {
		if n := rt.idx.Dropped(); n > 0 {
			rt.log.Warn("index dropped writes", "count", n)
		}
		_ = rt.idx.Close()
	}
}

// latestAutosave returns the newest autosave of the world, or "".
func latestAutosave(worldDir string) string {
	ticks, err := archive.Autosaves(worldDir)
	if err != nil || len(ticks) == 0 {
		return ""
	}
	return archive.AutosavePath(worldDir, ticks[len(ticks)-1])
}

type fanoutTickLogger []world.TickLogger

func (f fanoutTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errs []error
	for _, l := range f {
		if l == nil {
			continue
		}
		if err := l.WriteTick(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reportPanic sends a recovered world panic to sentry, then re-panics.
func reportPanic(worldID string, tick func() uint64) {
	r := recover()
	if r == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("world", worldID)
		scope.SetTag("tick", fmt.Sprint(tick()))
	})
	hub.Recover(r)
	hub.Flush(5 * time.Second)
	panic(r)
}
