package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"u8sim/internal/persistence/archive"
	"u8sim/internal/persistence/snapshot"
)

type saveEntry struct {
	Kind string          `json:"kind"`
	Name string          `json:"name"`
	Path string          `json:"path"`
	Hdr  snapshot.Header `json:"header"`
}

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "List autosaves and save slots of the world",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		entries, err := listSaves(worldDir())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			logger.Warn("no saves", "dir", worldDir())
		}
		printJSON(entries)
		return nil
	},
}

// listSaves reads the header of every autosave (oldest first) followed by
// every slot. Unreadable autosaves are skipped.
func listSaves(dir string) ([]saveEntry, error) {
	ticks, err := archive.Autosaves(dir)
	if err != nil {
		return nil, err
	}
	var out []saveEntry
	for _, t := range ticks {
		path := archive.AutosavePath(dir, t)
		hdr, err := snapshot.ReadHeader(path)
		if err != nil {
			continue
		}
		out = append(out, saveEntry{Kind: "autosave", Name: fmt.Sprint(t), Path: path, Hdr: hdr})
	}
	slots, err := archive.Slots(dir)
	if err != nil {
		return out, err
	}
	for _, m := range slots {
		out = append(out, saveEntry{
			Kind: "slot",
			Name: m.Slot,
			Path: filepath.Join(dir, "slots", m.Slot, m.Snapshot),
			Hdr: snapshot.Header{
				Version: snapshot.Version,
				WorldID: m.WorldID,
				Game:    m.Game,
				Tick:    m.Tick,
				Digest:  m.Digest,
			},
		})
	}
	return out, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <path|slot>",
	Short: "Print the header and content digests of a save",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.ReadSnapshot(resolveSave(worldDir(), args[0]))
		if err != nil {
			return err
		}
		printJSON(map[string]any{
			"header":           snap.Header,
			"ruleset":          snap.Ruleset,
			"shapes_digest":    snap.ShapesDigest,
			"firetypes_digest": snap.FireTypesDigest,
			"body_bytes":       len(snap.Body),
		})
		return nil
	},
}

// resolveSave maps a slot name to its save file; anything that exists on
// disk is taken as a path.
func resolveSave(dir, arg string) string {
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	if m, err := archive.ReadSlot(dir, arg); err == nil {
		return filepath.Join(dir, "slots", arg, m.Snapshot)
	}
	return arg
}
