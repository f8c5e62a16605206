package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"u8sim/internal/persistence/snapshot"
)

// SlotMeta describes a save copied into a named slot.
type SlotMeta struct {
	Slot      string `json:"slot"`
	WorldID   string `json:"world_id"`
	Game      string `json:"game"`
	Tick      uint64 `json:"tick"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

var slotName = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// AutosavePath is where the autosave for tick is written under dataDir.
func AutosavePath(dataDir string, tick uint64) string {
	return filepath.Join(dataDir, "autosaves", fmt.Sprintf("%d.u8s", tick))
}

// ArchiveSlot copies the save at snapshotPath into dataDir/slots/<slot>/,
// replacing whatever the slot held, and writes a meta.json beside it.
func ArchiveSlot(dataDir, slot, snapshotPath string, hdr snapshot.Header) (string, error) {
	if !slotName.MatchString(slot) {
		return "", fmt.Errorf("bad slot name %q", slot)
	}
	slotDir := filepath.Join(dataDir, "slots", slot)
	if err := os.MkdirAll(slotDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(slotDir, "save.u8s")
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := SlotMeta{
		Slot:      slot,
		WorldID:   hdr.WorldID,
		Game:      hdr.Game,
		Tick:      hdr.Tick,
		Digest:    hdr.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, err
	}
	return dst, os.WriteFile(filepath.Join(slotDir, "meta.json"), b, 0o644)
}

// ReadSlot returns the meta of a named slot.
func ReadSlot(dataDir, slot string) (SlotMeta, error) {
	var m SlotMeta
	b, err := os.ReadFile(filepath.Join(dataDir, "slots", slot, "meta.json"))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("slot %s meta.json: %w", slot, err)
	}
	return m, nil
}

// Slots returns the meta of every slot under dataDir, ordered by name.
// Directories without a readable meta.json are skipped.
func Slots(dataDir string) ([]SlotMeta, error) {
	ents, err := os.ReadDir(filepath.Join(dataDir, "slots"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []SlotMeta
	for _, e := range ents {
		if !e.IsDir() || !slotName.MatchString(e.Name()) {
			continue
		}
		m, err := ReadSlot(dataDir, e.Name())
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Autosaves lists autosave ticks in ascending order.
func Autosaves(dataDir string) ([]uint64, error) {
	ents, err := os.ReadDir(filepath.Join(dataDir, "autosaves"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ticks []uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".u8s") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".u8s"), 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks, nil
}

// PruneAutosaves removes all but the newest keep autosaves.
func PruneAutosaves(dataDir string, keep int) (removed int, err error) {
	ticks, err := Autosaves(dataDir)
	if err != nil || len(ticks) <= keep {
		return 0, err
	}
	for _, t := range ticks[:len(ticks)-keep] {
		if err := os.Remove(AutosavePath(dataDir, t)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
