package world

import (
	"encoding/json"

	"u8sim/internal/observerproto"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

// ObserverJoinRequest registers a read-only observer session that receives
// one TICK frame per tick on TickOut. All observer state is kept by the
// world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	TickOut   chan []byte

	ChunkRadius int
	MaxItems    int
	Processes   bool
	Contents    bool
}

// ObserverSubscribeRequest updates an existing session.
type ObserverSubscribeRequest struct {
	SessionID string

	ChunkRadius int
	MaxItems    int
	Processes   bool
	Contents    bool
}

type observerClient struct {
	id      string
	tickOut chan []byte
	cfg     observerCfg
}

type observerCfg struct {
	chunkRadius int
	maxItems    int
	processes   bool
	contents    bool
}

func clampInt(v, lo, hi, def int) int {
	if v <= 0 {
		return def
	}
	return min(max(v, lo), hi)
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.tickOut)
	}
	w.observers[req.SessionID] = &observerClient{
		id:      req.SessionID,
		tickOut: req.TickOut,
		cfg: observerCfg{
			chunkRadius: min(max(req.ChunkRadius, 0), 32),
			maxItems:    clampInt(req.MaxItems, 1, 65536, 4096),
			processes:   req.Processes,
			contents:    req.Contents,
		},
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.cfg.chunkRadius = min(max(req.ChunkRadius, 0), 32)
	c.cfg.maxItems = clampInt(req.MaxItems, 1, 65536, c.cfg.maxItems)
	c.cfg.processes = req.Processes
	c.cfg.contents = req.Contents
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.tickOut)
}

func (w *World) cameraPoint() geom.Point3 {
	if c, ok := w.camera.(*CameraProcess); ok {
		return c.pt
	}
	return geom.Point3{}
}

func (w *World) publishObservers(tick uint32) {
	for _, c := range w.observers {
		msg := w.buildTickMsg(tick, c.cfg)
		b, err := json.Marshal(msg)
		if err != nil {
			w.perr("observer frame", "session", c.id, "err", err)
			continue
		}
		sendLatest(c.tickOut, b)
	}
}

// buildTickMsg snapshots what an observer with cfg sees this tick.
func (w *World) buildTickMsg(tick uint32, cfg observerCfg) observerproto.TickMsg {
	cam := w.cameraPoint()
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            uint64(tick),
		Digest:          w.lastDigest,
		Camera:          [3]int32{cam.X, cam.Y, cam.Z},
		Items:           []observerproto.ItemState{},
	}
	if a := w.ControlledActor(); a != nil {
		msg.Controlled = uint16(a.objID)
	}
	if r, ok := w.reticle.(*ReticleProcess); ok {
		msg.Target = uint16(r.target)
	}

	var ids []ObjID
	if cfg.chunkRadius == 0 {
		ids = w.cmap.FastItems()
	} else {
		ids = w.cmap.ItemsNear(cam, int32(cfg.chunkRadius))
	}
	for _, id := range ids {
		if len(msg.Items) >= cfg.maxItems {
			break
		}
		it := w.Item(id)
		if it == nil {
			continue
		}
		msg.Items = append(msg.Items, itemState(it, cfg.contents))
		if a := actorOf(it.self); a != nil {
			msg.Actors = append(msg.Actors, observerproto.ActorState{
				ID:     uint16(a.objID),
				HP:     a.hp,
				Mana:   a.mana,
				Dir:    uint8(a.direction),
				Anim:   a.lastAnim,
				Dead:   a.IsDead(),
				Combat: a.IsInCombat(),
			})
		}
	}
	for _, id := range w.ethereal {
		msg.Ethereal = append(msg.Ethereal, uint16(id))
	}
	for _, id := range w.deferred {
		msg.Freed = append(msg.Freed, uint16(id))
	}
	if cfg.processes {
		for _, p := range w.kern.Processes(0, kernel.TypeAll) {
			b := p.ProcBase()
			ps := observerproto.ProcessState{
				Pid:       uint16(b.Pid()),
				Class:     p.ClassName(),
				Item:      b.ItemNum(),
				Type:      b.Type(),
				Suspended: b.IsSuspended(),
			}
			for _, pid := range b.WaitingOn() {
				ps.WaitingOn = append(ps.WaitingOn, uint16(pid))
			}
			msg.Processes = append(msg.Processes, ps)
		}
	}
	return msg
}

func itemState(it *Item, contents bool) observerproto.ItemState {
	p := it.Point()
	st := observerproto.ItemState{
		ID:      uint16(it.objID),
		Shape:   it.shape,
		Frame:   it.frame,
		Pos:     [3]int32{p.X, p.Y, p.Z},
		Flags:   it.flags,
		Quality: it.quality,
		Parent:  uint16(it.parent),
	}
	if c := containerOf(it.self); c != nil && contents {
		for _, id := range c.contents {
			st.Contents = append(st.Contents, uint16(id))
		}
	}
	return st
}

// ItemsNear lists world items in chunks within radius chunks of centre,
// chunk by chunk in row order.
func (m *CurrentMap) ItemsNear(centre geom.Point3, radius int32) []ObjID {
	c := m.chunkOf(centre.X, centre.Y)
	var out []ObjID
	for _, k := range m.sortedChunks() {
		if abs32(k.cx-c.cx) <= radius && abs32(k.cy-c.cy) <= radius {
			out = append(out, m.chunks[k]...)
		}
	}
	return out
}
