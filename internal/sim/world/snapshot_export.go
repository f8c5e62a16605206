package world

import (
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/encoding"
)

var (
	ErrDigestMismatch  = errors.New("world: snapshot digest does not match body")
	ErrRulesetMismatch = errors.New("world: snapshot ruleset differs")
)

func digestOf(body []byte) string { return fmt.Sprintf("%016x", xxh3.Hash(body)) }

// StateDigest hashes the save body. Worlds with equal digests load to the
// same state and step identically.
func (w *World) StateDigest() string {
	out := encoding.NewWriter()
	if err := w.Save(out); err != nil {
		w.perr("state digest", "err", err)
		return ""
	}
	return digestOf(out.Bytes())
}

// ExportSnapshot saves the world into a snapshot record.
func (w *World) ExportSnapshot() (snapshot.SnapshotV1, error) {
	out := encoding.NewWriter()
	if err := w.Save(out); err != nil {
		return snapshot.SnapshotV1{}, err
	}
	body := out.Bytes()
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			WorldID:   w.cfg.ID,
			Game:      w.rules.Game().String(),
			Tick:      uint64(w.CurrentTick()),
			Digest:    digestOf(body),
			Objects:   w.objects.Len(),
			Processes: w.kern.Len(),
		},
		Ruleset:         w.tun.Ruleset,
		ShapesDigest:    w.cats.Shapes.Digest,
		FireTypesDigest: w.cats.FireTypes.Digest,
		Body:            body,
	}, nil
}

// ImportSnapshot loads a snapshot made under the same ruleset. Catalog
// digest differences are logged, not refused.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Ruleset != w.tun.Ruleset {
		return fmt.Errorf("%w: %q, world runs %q", ErrRulesetMismatch, snap.Ruleset, w.tun.Ruleset)
	}
	if got := digestOf(snap.Body); got != snap.Header.Digest {
		return fmt.Errorf("%w: header %s, body %s", ErrDigestMismatch, snap.Header.Digest, got)
	}
	if snap.ShapesDigest != w.cats.Shapes.Digest || snap.FireTypesDigest != w.cats.FireTypes.Digest {
		w.perr("snapshot made with different catalogs", "tick", snap.Header.Tick)
	}
	return w.Load(encoding.NewReader(snap.Body))
}
