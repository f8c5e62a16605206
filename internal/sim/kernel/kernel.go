// Package kernel is the cooperative process scheduler. A Kernel is owned by
// the simulation goroutine and is not safe for concurrent use.
package kernel

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/elliotchance/orderedmap/v2"

	"u8sim/internal/sim/encoding"
)

var (
	errBadWaitList  = errors.New("kernel: wait list longer than stream")
	ErrUnknownClass = errors.New("kernel: unknown process class")
	ErrPidCollision = errors.New("kernel: duplicate pid")
)

const maxPid ProcID = 32766

// Loader constructs an empty process of a registered class for LoadData.
type Loader func() Process

type Kernel struct {
	procs   *orderedmap.OrderedMap[ProcID, Process]
	nextPid ProcID
	frame   uint32
	running Process

	preTick []func()
	loaders map[string]Loader

	log *log.Logger
}

func New() *Kernel {
	k := &Kernel{
		procs:   orderedmap.NewOrderedMap[ProcID, Process](),
		nextPid: 1,
		loaders: map[string]Loader{},
		log:     log.New(io.Discard),
	}
	k.RegisterLoader(classDelayProcess, func() Process { return &DelayProcess{} })
	return k
}

func (k *Kernel) SetLogger(l *log.Logger) {
	if l != nil {
		k.log = l
	}
}

// RegisterLoader binds a class name written by SaveData to a constructor.
func (k *Kernel) RegisterLoader(class string, fn Loader) { k.loaders[class] = fn }

// OnPreTick registers fn to run at the start of every tick before any
// process.
func (k *Kernel) OnPreTick(fn func()) { k.preTick = append(k.preTick, fn) }

func (k *Kernel) FrameNum() uint32        { return k.frame }
func (k *Kernel) RunningProcess() Process { return k.running }
func (k *Kernel) Len() int                { return k.procs.Len() }

func (k *Kernel) allocPid() ProcID {
	for range int(maxPid) {
		pid := k.nextPid
		k.nextPid++
		if k.nextPid > maxPid {
			k.nextPid = 1
		}
		if _, used := k.procs.Get(pid); !used {
			return pid
		}
	}
	return 0
}

// AddProcess registers p and returns its pid, or 0 if the pid space is
// exhausted. The process first runs on the next tick.
func (k *Kernel) AddProcess(p Process) ProcID {
	b := p.ProcBase()
	pid := k.allocPid()
	if pid == 0 {
		k.log.Error("process table full", "class", p.ClassName())
		return 0
	}
	b.pid = pid
	b.kernel = k
	b.flags |= FlagActive
	if b.ticksPerRun == 0 {
		b.ticksPerRun = 1
	}
	k.procs.Set(pid, p)
	return pid
}

// AddProcessExec registers p and runs it immediately.
func (k *Kernel) AddProcessExec(p Process) ProcID {
	pid := k.AddProcess(p)
	if pid != 0 {
		k.runOne(p)
	}
	return pid
}

func (k *Kernel) Process(pid ProcID) Process {
	p, ok := k.procs.Get(pid)
	if !ok {
		return nil
	}
	return p
}

// RunProcesses advances one tick. Every live, unsuspended process present
// at the start of the pass runs once; dead processes are reaped afterwards.
func (k *Kernel) RunProcesses() {
	k.frame++
	for _, fn := range k.preTick {
		fn()
	}

	pids := make([]ProcID, 0, k.procs.Len())
	for el := k.procs.Front(); el != nil; el = el.Next() {
		pids = append(pids, el.Key)
	}
	for _, pid := range pids {
		p, ok := k.procs.Get(pid)
		if !ok {
			continue
		}
		b := p.ProcBase()
		if b.IsTerminated() {
			continue
		}
		if b.Is(FlagTermDeferred) {
			p.Terminate()
			continue
		}
		if b.IsSuspended() {
			continue
		}
		if b.ticksPerRun > 1 && k.frame%b.ticksPerRun != 0 {
			continue
		}
		k.runOne(p)
	}
	k.reap()
}

func (k *Kernel) runOne(p Process) {
	prev := k.running
	k.running = p
	p.Run()
	k.running = prev
	b := p.ProcBase()
	if b.Is(FlagTermDeferred) && !b.IsTerminated() {
		p.Terminate()
	}
}

func (k *Kernel) reap() {
	var dead []ProcID
	for el := k.procs.Front(); el != nil; el = el.Next() {
		if el.Value.ProcBase().IsTerminated() {
			dead = append(dead, el.Key)
		}
	}
	for _, pid := range dead {
		k.procs.Delete(pid)
	}
}

func matches(b *Base, objID, typ uint16) bool {
	return (objID == 0 || b.itemNum == objID) && (typ == TypeAll || b.typ == typ)
}

// KillProcesses terminates every live process bound to objID (0 = any)
// with the given type (TypeAll = any).
func (k *Kernel) KillProcesses(objID, typ uint16, fail bool) int {
	var victims []Process
	for el := k.procs.Front(); el != nil; el = el.Next() {
		b := el.Value.ProcBase()
		if !b.IsTerminated() && matches(b, objID, typ) {
			victims = append(victims, el.Value)
		}
	}
	for _, p := range victims {
		if fail {
			Fail(p)
		} else {
			p.Terminate()
		}
	}
	return len(victims)
}

// Fail marks p failed and terminates it through its own Terminate.
func Fail(p Process) {
	p.ProcBase().flags |= FlagFailed
	p.Terminate()
}

// FindProcess returns the first live process matching objID and typ.
func (k *Kernel) FindProcess(objID, typ uint16) Process {
	for el := k.procs.Front(); el != nil; el = el.Next() {
		b := el.Value.ProcBase()
		if !b.IsTerminated() && matches(b, objID, typ) {
			return el.Value
		}
	}
	return nil
}

// Processes lists the live processes matching objID and typ in schedule
// order.
func (k *Kernel) Processes(objID, typ uint16) []Process {
	var out []Process
	for el := k.procs.Front(); el != nil; el = el.Next() {
		b := el.Value.ProcBase()
		if !b.IsTerminated() && matches(b, objID, typ) {
			out = append(out, el.Value)
		}
	}
	return out
}

// dependsOn reports whether from is (transitively) blocked by target.
func (k *Kernel) dependsOn(from, target ProcID) bool {
	seen := map[ProcID]bool{}
	stack := []ProcID{from}
	for len(stack) > 0 {
		pid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pid == target {
			return true
		}
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if p := k.Process(pid); p != nil {
			stack = append(stack, p.ProcBase().blockedBy...)
		}
	}
	return false
}

// Reset drops every process without running termination hooks.
func (k *Kernel) Reset() {
	k.procs = orderedmap.NewOrderedMap[ProcID, Process]()
	k.nextPid = 1
	k.frame = 0
	k.running = nil
}

// Save writes the frame counter and every saveable process in schedule
// order, each prefixed with its class name.
func (k *Kernel) Save(w *encoding.Writer) {
	w.WriteU32(k.frame)
	w.WriteU16(uint16(k.nextPid))
	var live []Process
	for el := k.procs.Front(); el != nil; el = el.Next() {
		b := el.Value.ProcBase()
		if b.IsTerminated() || b.Is(FlagPreventSave) {
			continue
		}
		live = append(live, el.Value)
	}
	w.WriteU32(uint32(len(live)))
	for _, p := range live {
		w.WriteString(p.ClassName())
		p.SaveData(w)
	}
}

// Load replaces the process table with the saved one and rebuilds the
// inverse wait edges. Live unsaved processes are kept under their pids
// unless a loaded process claims the pid.
func (k *Kernel) Load(r *encoding.Reader, version uint32) error {
	var kept []Process
	for el := k.procs.Front(); el != nil; el = el.Next() {
		if b := el.Value.ProcBase(); !b.IsTerminated() && b.Is(FlagPreventSave) {
			kept = append(kept, el.Value)
		}
	}
	k.Reset()
	k.frame = r.ReadU32()
	k.nextPid = ProcID(r.ReadU16())
	if k.nextPid == 0 || k.nextPid > maxPid {
		k.nextPid = 1
	}
	n := r.ReadU32()
	for i := uint32(0); i < n; i++ {
		class := r.ReadString()
		if err := r.Err(); err != nil {
			return fmt.Errorf("kernel load: %w", err)
		}
		mk, ok := k.loaders[class]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownClass, class)
		}
		p := mk()
		if err := p.LoadData(r, version); err != nil {
			return fmt.Errorf("kernel load %s: %w", class, err)
		}
		b := p.ProcBase()
		if _, dup := k.procs.Get(b.pid); dup || b.pid == 0 {
			return fmt.Errorf("%w: %d", ErrPidCollision, b.pid)
		}
		b.kernel = k
		k.procs.Set(b.pid, p)
	}
	for _, p := range kept {
		b := p.ProcBase()
		if _, dup := k.procs.Get(b.pid); dup {
			k.log.Warn("unsaved process displaced by load", "class", p.ClassName(), "pid", b.pid)
			continue
		}
		b.waiting, b.blockedBy = nil, nil
		k.procs.Set(b.pid, p)
	}
	for el := k.procs.Front(); el != nil; el = el.Next() {
		b := el.Value.ProcBase()
		for _, pid := range b.waiting {
			if q := k.Process(pid); q != nil {
				qb := q.ProcBase()
				qb.blockedBy = append(qb.blockedBy, b.pid)
			}
		}
	}
	return r.Err()
}
