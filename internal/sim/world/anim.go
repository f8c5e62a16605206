package world

import (
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

const classActorAnimProcess = "ActorAnimProcess"

// ActorAnimProcess plays one animation action on an actor, one frame every
// few ticks, and terminates after the last frame. Only the action and frame
// bookkeeping is simulated.
type ActorAnimProcess struct {
	kernel.Base
	w       *World
	action  uint32
	dir     geom.Direction
	frames  uint32
	started bool
}

func newActorAnimProcess(w *World, a *Actor, action uint32, dir geom.Direction) *ActorAnimProcess {
	p := &ActorAnimProcess{
		Base:   kernel.NewBase(uint16(a.objID), ProcTypeActorAnim),
		w:      w,
		action: action,
		dir:    dir,
	}
	p.SetTicksPerRun(uint32(defaultAnimTicksPerFrame))
	return p
}

func (p *ActorAnimProcess) ClassName() string { return classActorAnimProcess }
func (p *ActorAnimProcess) Action() uint32    { return p.action }

func (p *ActorAnimProcess) Run() {
	a := p.w.Actor(ObjID(p.ItemNum()))
	if a == nil {
		p.Terminate()
		return
	}
	if !p.started {
		p.started = true
		a.lastAnim = p.action
		a.animFrame = 0
		if p.dir < geom.DirInvalid {
			a.direction = p.dir
		}
		p.frames = 1
		if ai := a.ShapeInfo().Action(p.action); ai != nil && len(ai.Frames) > 0 {
			p.frames = uint32(len(ai.Frames))
		}
	} else {
		a.animFrame++
	}
	if uint32(a.animFrame)+1 >= p.frames {
		p.Terminate()
	}
}

func (p *ActorAnimProcess) SaveData(w *encoding.Writer) {
	p.Base.SaveData(w)
	w.WriteU32(p.action)
	w.WriteU8(uint8(p.dir))
	w.WriteU32(p.frames)
	w.WriteBool(p.started)
}

func (p *ActorAnimProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := p.Base.LoadData(r, version); err != nil {
		return err
	}
	p.action = r.ReadU32()
	p.dir = geom.Direction(r.ReadU8())
	p.frames = r.ReadU32()
	p.started = r.ReadBool()
	return r.Err()
}

// DoAnim queues an animation. dir DirInvalid keeps the current facing.
func (a *Actor) DoAnim(action uint32, dir geom.Direction) kernel.ProcID {
	return a.world.kern.AddProcess(newActorAnimProcess(a.world, a, action, dir))
}

// DoAnimAfter queues an animation that starts once after has finished.
func (a *Actor) DoAnimAfter(action uint32, dir geom.Direction, after kernel.ProcID) kernel.ProcID {
	p := newActorAnimProcess(a.world, a, action, dir)
	pid := a.world.kern.AddProcess(p)
	if after != 0 {
		p.WaitFor(after)
	}
	return pid
}

// SetToStartOfAnim switches the pose without playing the animation.
func (a *Actor) SetToStartOfAnim(action uint32) {
	a.lastAnim = action
	a.animFrame = 0
}

// IsBusy reports whether an animation is queued or playing.
func (a *Actor) IsBusy() bool {
	return a.world.kern.FindProcess(uint16(a.objID), ProcTypeActorAnim) != nil
}

// killAllButFallAnims stops the actor's processes, keeping a running death
// animation, and returns that animation's pid. Outside death, gravity keeps
// running.
func (a *Actor) killAllButFallAnims(death bool) kernel.ProcID {
	var fall kernel.ProcID
	for _, p := range a.world.kern.Processes(uint16(a.objID), kernel.TypeAll) {
		anim, ok := p.(*ActorAnimProcess)
		if !ok {
			if death || p.ProcBase().Type() != ProcTypeGravity {
				kernel.Fail(p)
			}
			continue
		}
		if anim.action == AnimDie {
			fall = anim.Pid()
			continue
		}
		kernel.Fail(p)
	}
	return fall
}

// IsKneeling reports whether the current pose is one of the kneeling
// actions.
func (a *Actor) IsKneeling() bool {
	switch a.lastAnim {
	case AnimKneel, AnimKneelFireSmall, AnimKneelFireLarge:
		return true
	}
	return false
}

// AnimDirMode is the facing resolution of an action's frames.
func (a *Actor) AnimDirMode(action uint32) geom.DirMode {
	if ai := a.ShapeInfo().Action(action); ai != nil && ai.DirMode == 16 {
		return geom.DirMode16
	}
	return geom.DirMode8
}
