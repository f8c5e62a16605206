package log

import (
	"testing"
	"time"

	"u8sim/internal/sim/world"
)

func TestTickLogger_RotatesHourlyAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for tick := uint32(1); tick <= 5; tick++ {
		if tick == 4 {
			clock = clock.Add(2 * time.Minute)
		}
		if err := l.WriteTick(world.TickLogEntry{Tick: tick, Objects: 3, Digest: "d"}); err != nil {
			t.Fatalf("write tick %d: %v", tick, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadTicks(dir)
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("read %d entries, want 5", len(got))
	}
	for i, e := range got {
		if e.Tick != uint32(i+1) || e.Objects != 3 {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
	if p := l.w.pathForHour("2026-03-01-11"); p == l.w.pathForHour("2026-03-01-10") {
		t.Fatalf("hours share a file: %s", p)
	}
}

func TestReadTicks_EmptyDir(t *testing.T) {
	got, err := ReadTicks(t.TempDir())
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v err=%v", got, err)
	}
}
