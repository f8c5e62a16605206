package kernel

import (
	"slices"

	"u8sim/internal/sim/encoding"
)

// ProcID identifies a process. Zero is never assigned.
type ProcID uint16

const (
	FlagActive       uint32 = 0x0001
	FlagSuspended    uint32 = 0x0002
	FlagTerminated   uint32 = 0x0004
	FlagTermDeferred uint32 = 0x0008
	FlagFailed       uint32 = 0x0010
	FlagRunPaused    uint32 = 0x0020
	FlagTermDisposes uint32 = 0x0040
	FlagPreventSave  uint32 = 0x0080
)

// TypeAll matches every process type in KillProcesses and FindProcess.
const TypeAll uint16 = 6

// Process is a cooperatively scheduled task. Run is called at most once per
// tick and must return; a process that needs to wait calls WaitFor or
// Suspend on its Base before returning.
type Process interface {
	ProcBase() *Base
	Run()
	// Terminate marks the process dead and wakes its dependents. Types that
	// own resources override it and call Base.Terminate.
	Terminate()
	ClassName() string
	SaveData(w *encoding.Writer)
	LoadData(r *encoding.Reader, version uint32) error
}

// Base carries the bookkeeping shared by every process. Embed it.
type Base struct {
	pid         ProcID
	flags       uint32
	itemNum     uint16
	typ         uint16
	result      uint32
	ticksPerRun uint32

	// waiting holds the pids to wake when this process terminates.
	waiting []ProcID
	// blockedBy is the inverse edge set. Rebuilt on load.
	blockedBy []ProcID

	kernel *Kernel
}

func NewBase(itemNum, typ uint16) Base {
	return Base{itemNum: itemNum, typ: typ, ticksPerRun: 1}
}

func (b *Base) ProcBase() *Base { return b }

func (b *Base) Pid() ProcID          { return b.pid }
func (b *Base) ItemNum() uint16      { return b.itemNum }
func (b *Base) SetItemNum(id uint16) { b.itemNum = id }
func (b *Base) Type() uint16         { return b.typ }
func (b *Base) SetType(t uint16)     { b.typ = t }
func (b *Base) Flags() uint32        { return b.flags }
func (b *Base) Result() uint32       { return b.result }
func (b *Base) SetResult(r uint32)   { b.result = r }
func (b *Base) Kernel() *Kernel      { return b.kernel }

func (b *Base) SetTicksPerRun(n uint32) {
	if n == 0 {
		n = 1
	}
	b.ticksPerRun = n
}

func (b *Base) Is(flag uint32) bool  { return b.flags&flag != 0 }
func (b *Base) IsTerminated() bool   { return b.flags&FlagTerminated != 0 }
func (b *Base) IsSuspended() bool    { return b.flags&FlagSuspended != 0 }
func (b *Base) TerminateDeferred()   { b.flags |= FlagTermDeferred }
func (b *Base) Suspend()             { b.flags |= FlagSuspended }
func (b *Base) WaitingOn() []ProcID  { return slices.Clone(b.blockedBy) }
func (b *Base) Dependents() []ProcID { return slices.Clone(b.waiting) }

// PreventSave keeps the process out of Save. Such processes hold only
// state derived from the world each tick and survive Load as they are.
func (b *Base) PreventSave() { b.flags |= FlagPreventSave }

// Terminate is the default termination: mark dead and release dependents.
func (b *Base) Terminate() {
	if b.flags&FlagTerminated != 0 {
		return
	}
	b.flags |= FlagTerminated
	b.flags &^= FlagTermDeferred
	waiting := b.waiting
	b.waiting = nil
	if b.kernel == nil {
		return
	}
	for _, pid := range waiting {
		if p := b.kernel.Process(pid); p != nil {
			p.ProcBase().wakeup(b.pid, b.result)
		}
	}
}

// WaitFor blocks this process until pid terminates. Waiting on a missing or
// finished process, or on one that already depends on this process, does
// not block. Reports whether an edge was added.
func (b *Base) WaitFor(pid ProcID) bool {
	if b.kernel == nil || pid == 0 || pid == b.pid {
		return false
	}
	p := b.kernel.Process(pid)
	if p == nil || p.ProcBase().IsTerminated() {
		return false
	}
	if b.kernel.dependsOn(pid, b.pid) {
		b.kernel.log.Warn("refusing cyclic wait", "pid", b.pid, "on", pid)
		return false
	}
	other := p.ProcBase()
	if !slices.Contains(other.waiting, b.pid) {
		other.waiting = append(other.waiting, b.pid)
	}
	if !slices.Contains(b.blockedBy, pid) {
		b.blockedBy = append(b.blockedBy, pid)
	}
	b.flags |= FlagSuspended
	return true
}

func (b *Base) wakeup(from ProcID, result uint32) {
	b.blockedBy = slices.DeleteFunc(b.blockedBy, func(p ProcID) bool { return p == from })
	b.result = result
	if len(b.blockedBy) == 0 {
		b.flags &^= FlagSuspended
	}
}

// Wakeup clears a manual suspension. Processes still blocked on a live
// dependency stay suspended.
func (b *Base) Wakeup(result uint32) {
	b.result = result
	if len(b.blockedBy) == 0 {
		b.flags &^= FlagSuspended
	}
}

func (b *Base) SaveData(w *encoding.Writer) {
	w.WriteU16(uint16(b.pid))
	w.WriteU32(b.flags)
	w.WriteU16(b.itemNum)
	w.WriteU16(b.typ)
	w.WriteU32(b.result)
	w.WriteU32(b.ticksPerRun)
	w.WriteU32(uint32(len(b.waiting)))
	for _, pid := range b.waiting {
		w.WriteU16(uint16(pid))
	}
}

func (b *Base) LoadData(r *encoding.Reader, version uint32) error {
	b.pid = ProcID(r.ReadU16())
	b.flags = r.ReadU32()
	b.itemNum = r.ReadU16()
	b.typ = r.ReadU16()
	b.result = r.ReadU32()
	b.ticksPerRun = r.ReadU32()
	n := r.ReadU32()
	if n > uint32(r.Remaining()/2) {
		r.Fail(errBadWaitList)
		return r.Err()
	}
	b.waiting = make([]ProcID, 0, n)
	for i := uint32(0); i < n; i++ {
		b.waiting = append(b.waiting, ProcID(r.ReadU16()))
	}
	if b.ticksPerRun == 0 {
		b.ticksPerRun = 1
	}
	return r.Err()
}
