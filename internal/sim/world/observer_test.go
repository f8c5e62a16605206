package world

import (
	"context"
	"encoding/json"
	"slices"
	"testing"
	"time"

	"u8sim/internal/observerproto"
	"u8sim/internal/persistence/snapshot"
)

func TestObserver_TickFrameAndLeave(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	spawnAvatar(t, w, pt(300, 300, 0))
	pot := spawn(t, w, shapePot, pt(200, 200, 0))

	out := make(chan []byte, 1)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", TickOut: out, Processes: true})
	tick, digest := w.StepOnce()

	var msg observerproto.TickMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if msg.Type != observerproto.TypeTick || msg.Tick != uint64(tick) || msg.Digest != digest {
		t.Fatalf("frame type=%s tick=%d digest=%s, want tick %d digest %s", msg.Type, msg.Tick, msg.Digest, tick, digest)
	}
	if !slices.ContainsFunc(msg.Items, func(s observerproto.ItemState) bool { return s.ID == uint16(pot.ObjID()) }) {
		t.Fatalf("pot %d missing from frame items", pot.ObjID())
	}
	if msg.Controlled != uint16(MainActorID) || len(msg.Actors) != 1 {
		t.Fatalf("controlled=%d actors=%d", msg.Controlled, len(msg.Actors))
	}
	if !slices.ContainsFunc(msg.Processes, func(p observerproto.ProcessState) bool { return p.Class == classCameraProcess }) {
		t.Fatalf("camera process missing from %+v", msg.Processes)
	}

	w.handleObserverSubscribe(ObserverSubscribeRequest{SessionID: "s1", MaxItems: 1})
	w.StepOnce()
	var msg2 observerproto.TickMsg
	if err := json.Unmarshal(<-out, &msg2); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if len(msg2.Items) != 1 || len(msg2.Processes) != 0 {
		t.Fatalf("after subscribe: %d items %d processes", len(msg2.Items), len(msg2.Processes))
	}

	w.handleObserverLeave("s1")
	if _, ok := <-out; ok {
		t.Fatalf("tick channel still open after leave")
	}
}

func TestObserver_SlowReaderGetsLatestFrame(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	out := make(chan []byte, 1)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "slow", TickOut: out})
	w.StepOnce()
	last, _ := w.StepOnce()

	var msg observerproto.TickMsg
	if err := json.Unmarshal(<-out, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if msg.Tick != uint64(last) {
		t.Fatalf("got tick %d, want the latest %d", msg.Tick, last)
	}
}

func TestRun_ServesObserversAndSnapshots(t *testing.T) {
	tun := testTuning("crusader")
	tun.TickRateHz = 100
	w := newTestWorld(t, tun)
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	out := make(chan []byte, 1)
	w.ObserverJoin() <- ObserverJoinRequest{SessionID: "live", TickOut: out}
	select {
	case b := <-out:
		var msg observerproto.TickMsg
		if err := json.Unmarshal(b, &msg); err != nil || msg.Tick == 0 {
			t.Fatalf("frame tick=%d err=%v", msg.Tick, err)
		}
	case <-ctx.Done():
		t.Fatalf("no tick frame from the running world")
	}

	tick, err := w.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	select {
	case snap := <-sink:
		if snap.Header.Tick != tick || snap.Ruleset != "crusader" {
			t.Fatalf("snapshot tick=%d ruleset=%s, want tick %d", snap.Header.Tick, snap.Ruleset, tick)
		}
	case <-ctx.Done():
		t.Fatalf("snapshot never reached the sink")
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after Stop", err)
	}
	if w.PublishedTick() < uint64(tick) {
		t.Fatalf("published tick %d behind snapshot tick %d", w.PublishedTick(), tick)
	}
}
