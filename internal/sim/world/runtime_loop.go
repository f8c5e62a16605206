package world

import (
	"context"
	"errors"
	"time"
)

// Run drives the world at the tuned tick rate until ctx ends or Stop is
// called. Observer requests are served between ticks; admin saves wait for
// the next tick boundary.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingAdmin []adminSaveReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case <-ticker.C:
			w.stepInternal()
			w.handleAdminSaveRequests(pendingAdmin)
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances one tick exactly as Run does and returns the tick
// just run with the resulting state digest. Used by replays and tests.
func (w *World) StepOnce() (tick uint32, digest string) {
	w.stepInternal()
	return w.CurrentTick(), w.lastDigest
}

func (w *World) stepInternal() {
	w.Step()
	tick := w.CurrentTick()
	w.publishedTick.Store(uint64(tick))

	w.lastDigest = w.StateDigest()
	if w.tickLogger != nil {
		entry := TickLogEntry{
			Tick:      tick,
			Objects:   w.objects.Len(),
			Processes: w.kern.Len(),
			Digest:    w.lastDigest,
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.perr("tick log", "tick", tick, "err", err)
		}
	}
	if len(w.observers) > 0 {
		w.publishObservers(tick)
	}
	if n := w.tun.SaveEveryTicks; n > 0 && tick%uint32(n) == 0 {
		if err := w.sendSnapshot(); err != nil {
			w.perr("autosave", "tick", tick, "err", err)
		}
	}
}

// PublishedTick is the last completed tick. Safe from any goroutine.
func (w *World) PublishedTick() uint64 { return w.publishedTick.Load() }

type adminSaveReq struct {
	Resp chan adminSaveResp
}

type adminSaveResp struct {
	Tick uint64
	Err  string
}

// RequestSnapshot asks the world loop goroutine to hand a snapshot to the
// sink after the current tick. It is safe to call from other goroutines.
func (w *World) RequestSnapshot(ctx context.Context) (tick uint64, err error) {
	resp := make(chan adminSaveResp, 1)
	select {
	case w.admin <- adminSaveReq{Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		if r.Err != "" {
			return r.Tick, errors.New(r.Err)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) sendSnapshot() error {
	if w.snapshotSink == nil {
		return errors.New("snapshot sink not configured")
	}
	snap, err := w.ExportSnapshot()
	if err != nil {
		return err
	}
	select {
	case w.snapshotSink <- snap:
		return nil
	default:
		return errors.New("snapshot sink backpressure")
	}
}

func (w *World) handleAdminSaveRequests(reqs []adminSaveReq) {
	if len(reqs) == 0 {
		return
	}
	resp := adminSaveResp{Tick: uint64(w.CurrentTick())}
	if err := w.sendSnapshot(); err != nil {
		resp.Err = err.Error()
	}
	for _, r := range reqs {
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- resp:
		default:
			// Client gave up; never block the loop.
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
