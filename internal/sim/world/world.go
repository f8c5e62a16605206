package world

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
	"u8sim/internal/sim/tuning"
)

type WorldConfig struct {
	ID     string
	Tuning tuning.Tuning
}

// World is a single-threaded simulation of items and processes.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg   WorldConfig
	tun   tuning.Tuning
	cats  *catalogs.Catalogs
	rules Ruleset

	kern    *kernel.Kernel
	objects *ObjectManager
	cmap    *CurrentMap

	pcg *rand.PCG
	rng *rand.Rand

	log *log.Logger

	usecode   Usecode
	audio     Audio
	camera    Camera
	reticle   TargetReticle
	crosshair Crosshair

	controlled ObjID
	ethereal   []ObjID
	// Ids released this tick; recycled by the next tick's pre-tick hook.
	deferred []ObjID
	nextGump ObjID

	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1
	lastDigest   string

	// Mirrors the kernel frame for readers outside the loop goroutine.
	publishedTick atomic.Uint64

	stop          chan struct{}
	admin         chan adminSaveReq
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	observers     map[string]*observerClient
}

// TickLogger receives one entry per simulated tick.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick      uint32 `json:"tick"`
	Objects   int    `json:"objects"`
	Processes int    `json:"processes"`
	Digest    string `json:"digest"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	rules, err := NewRuleset(cfg.Tuning.Ruleset)
	if err != nil {
		return nil, err
	}
	pcg := rand.NewPCG(cfg.Tuning.Seed, cfg.Tuning.Seed^0x9e3779b97f4a7c15)
	w := &World{
		cfg:           cfg,
		tun:           cfg.Tuning,
		cats:          cats,
		rules:         rules,
		kern:          kernel.New(),
		objects:       NewObjectManager(),
		pcg:           pcg,
		rng:           rand.New(pcg),
		log:           log.New(io.Discard),
		usecode:       nopUsecode{},
		audio:         nopAudio{},
		nextGump:      gumpIDBase,
		stop:          make(chan struct{}),
		admin:         make(chan adminSaveReq, 16),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]*observerClient{},
	}
	w.cmap = newCurrentMap(w, cfg.Tuning.ChunkSize, cfg.Tuning.MapChunks, cfg.Tuning.FastRadius)
	w.registerProcessLoaders()
	w.kern.OnPreTick(w.drainDeferred)

	cam := NewCameraProcess(w, 0)
	w.kern.AddProcess(cam)
	w.camera = cam
	ret := NewReticleProcess(w)
	w.kern.AddProcess(ret)
	w.reticle = ret
	ch := NewCrosshairProcess(w)
	w.kern.AddProcess(ch)
	w.crosshair = ch
	return w, nil
}

func (w *World) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	w.log = l
	w.kern.SetLogger(l)
}

func (w *World) SetUsecode(u Usecode) {
	if u == nil {
		u = nopUsecode{}
	}
	w.usecode = u
}

func (w *World) SetAudio(a Audio) {
	if a == nil {
		a = nopAudio{}
	}
	w.audio = a
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string                   { return w.cfg.ID }
func (w *World) Tuning() tuning.Tuning        { return w.tun }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }
func (w *World) Rules() Ruleset               { return w.rules }
func (w *World) Kernel() *kernel.Kernel       { return w.kern }
func (w *World) Map() *CurrentMap             { return w.cmap }
func (w *World) Objects() *ObjectManager      { return w.objects }
func (w *World) Rand() *rand.Rand             { return w.rng }
func (w *World) Audio() Audio                 { return w.audio }
func (w *World) Camera() Camera               { return w.camera }
func (w *World) Reticle() TargetReticle       { return w.reticle }
func (w *World) Crosshair() Crosshair         { return w.crosshair }
func (w *World) CurrentTick() uint32          { return w.kern.FrameNum() }

func (w *World) pout(msg string, kv ...any) { w.log.Debug(msg, kv...) }
func (w *World) perr(msg string, kv ...any) { w.log.Warn(msg, kv...) }

// cantHappen aborts on a broken invariant rather than continue with
// corrupt state.
func (w *World) cantHappen(msg string) {
	w.log.Error("invariant violated", "msg", msg)
	panic("world: " + msg)
}

// randRange draws uniformly from [lo, hi].
func (w *World) randRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + w.rng.IntN(hi-lo+1)
}

func (w *World) Object(id ObjID) Object { return w.objects.Get(id) }

// Resolve returns the object a handle pins, or nil when stale.
func (w *World) Resolve(h Handle) Object { return w.objects.Resolve(h) }

func (w *World) Item(id ObjID) *Item {
	if o := w.objects.Get(id); o != nil {
		return o.AsItem()
	}
	return nil
}

func (w *World) Container(id ObjID) *Container { return containerOf(w.objects.Get(id)) }
func (w *World) Actor(id ObjID) *Actor         { return actorOf(w.objects.Get(id)) }

func (w *World) MainActor() *MainActor {
	if ma, ok := w.objects.Get(MainActorID).(*MainActor); ok {
		return ma
	}
	return nil
}

// ControlledActor is the actor the player is steering; usually the main
// actor.
func (w *World) ControlledActor() *Actor {
	id := w.controlled
	if id == 0 {
		id = MainActorID
	}
	return w.Actor(id)
}

func (w *World) SetControlledActor(id ObjID) { w.controlled = id }

func (w *World) isControlled(id ObjID) bool {
	a := w.ControlledActor()
	return a != nil && a.objID == id
}

func (w *World) etherealPush(id ObjID) { w.ethereal = append(w.ethereal, id) }

func (w *World) etherealRemove(id ObjID) { w.ethereal = removeID(w.ethereal, id) }

// EtherealRemove drops id from the ethereal stack without moving it.
func (w *World) EtherealRemove(id ObjID) { w.etherealRemove(id) }

// EtherealTop is the most recently voided item, or 0.
func (w *World) EtherealTop() ObjID {
	if n := len(w.ethereal); n > 0 {
		return w.ethereal[n-1]
	}
	return 0
}

func (w *World) EtherealPeek(id ObjID) bool {
	for _, e := range w.ethereal {
		if e == id {
			return true
		}
	}
	return false
}

// release detaches an object from its id. The id comes back into
// circulation at the start of the next tick unless now is set.
func (w *World) release(id ObjID, now bool) {
	w.objects.Release(id)
	if now {
		w.objects.Recycle(id)
		return
	}
	w.deferred = append(w.deferred, id)
}

func (w *World) drainDeferred() {
	for _, id := range w.deferred {
		w.objects.Recycle(id)
	}
	w.deferred = w.deferred[:0]
}

// PendingFrees reports ids waiting for the next tick.
func (w *World) PendingFrees() []ObjID { return append([]ObjID(nil), w.deferred...) }

const gumpIDBase ObjID = 0xF000

// allocGump hands out an opaque gump id. Gumps are not simulated here.
func (w *World) allocGump() ObjID {
	id := w.nextGump
	w.nextGump++
	if w.nextGump >= maxObjID {
		w.nextGump = gumpIDBase
	}
	return id
}

// CreateItem builds an item of the shape's class. With assignID the item
// gets a fresh object id; otherwise the caller places it.
func (w *World) CreateItem(shape, frame uint32, quality, flags, npcNum, mapNum uint16, extFlags uint32, assignID bool) *Item {
	si := w.cats.Shapes.Shape(shape)
	var obj Object
	if si.Family == catalogs.FamilyContainer {
		obj = newContainer(w)
	} else {
		obj = newItem(w)
	}
	it := obj.AsItem()
	it.shape = shape
	it.frame = frame
	it.quality = quality
	it.flags = flags &^ flagsOwnership
	it.npcNum = npcNum
	it.mapNum = mapNum
	it.extFlags = extFlags &^ ExtInCurMap
	if si.Damage != nil {
		it.damagePoints = si.Damage.Points
	}
	if assignID {
		id := w.objects.Assign(obj)
		if id == 0 {
			w.perr("object table full", "shape", shape)
			return nil
		}
		it.objID = id
	}
	return it
}

// CreateActor builds an NPC at a fixed id below 256.
func (w *World) CreateActor(id ObjID, shape, frame uint32) *Actor {
	if id == 0 || id >= firstItemID {
		return nil
	}
	var obj Object
	var a *Actor
	if id == MainActorID {
		ma := newMainActor(w)
		obj, a = ma, &ma.Actor
	} else {
		a = newActor(w)
		obj = a
	}
	a.shape = shape
	a.frame = frame
	a.npcNum = uint16(id)
	a.extFlags |= ExtPermanentNPC
	a.flags |= FlagInNpcList
	if !w.objects.AssignID(id, obj) {
		w.perr("actor id in use", "id", id)
		return nil
	}
	a.objID = id
	a.initStats()
	return a
}

func newItem(w *World) *Item {
	it := &Item{world: w}
	it.self = it
	return it
}

// SetupLerp refreshes render state for every item in the fast area.
func (w *World) setupLerps() {
	tick := w.kern.FrameNum()
	for _, id := range w.cmap.FastItems() {
		if it := w.Item(id); it != nil {
			it.SetupLerp(tick)
		}
	}
}

// Step advances one tick.
func (w *World) Step() {
	w.kern.RunProcesses()
	w.setupLerps()
}

// FireType looks up a fire type by number.
func (w *World) FireType(n uint16) *catalogs.FireType { return w.cats.FireTypes.FireType(n) }

// UsecodePoint converts a world point to usecode coordinates.
func (w *World) UsecodePoint(p geom.Point3) geom.Point3 {
	s := w.rules.Traits().UsecodeCoordShift
	return geom.Point3{X: p.X >> s, Y: p.Y >> s, Z: p.Z}
}

// WorldPoint converts usecode coordinates back to world units.
func (w *World) WorldPoint(p geom.Point3) geom.Point3 {
	s := w.rules.Traits().UsecodeCoordShift
	return geom.Point3{X: p.X << s, Y: p.Y << s, Z: p.Z}
}
