// Package scenario populates a world from a yaml description: actors,
// items and their containers, and an optional list of intrinsic calls
// run against the result.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/intrinsics"
	"u8sim/internal/sim/world"
)

var (
	ErrUnknownName = errors.New("scenario: unknown item name")
	ErrExpectation = errors.New("scenario: step result mismatch")
)

type Scenario struct {
	Name   string  `yaml:"name"`
	Camera []int32 `yaml:"camera"`
	// Ticks to run after setup and before the steps.
	Warmup int     `yaml:"warmup"`
	Actors []Actor `yaml:"actors"`
	Items  []Item  `yaml:"items"`
	Steps  []Step  `yaml:"steps"`
}

type Actor struct {
	ID    uint16  `yaml:"id"`
	Name  string  `yaml:"name"`
	Shape uint32  `yaml:"shape"`
	Frame uint32  `yaml:"frame"`
	At    []int32 `yaml:"at"`
	Str   int16   `yaml:"str"`
	Dex   int16   `yaml:"dex"`
	Int   int16   `yaml:"int"`
	HP    uint16  `yaml:"hp"`
}

type Item struct {
	Name    string  `yaml:"name"`
	Shape   uint32  `yaml:"shape"`
	Frame   uint32  `yaml:"frame"`
	Quality uint16  `yaml:"quality"`
	At      []int32 `yaml:"at"`
	// In names a container or actor to put the item in.
	In string `yaml:"in"`
	// Equip names an actor to equip the item on.
	Equip string `yaml:"equip"`
}

// Step calls one intrinsic by name. Args are written in order:
// "@name" is an item pointer, "x,y,z" a pointer to a usecode point,
// "s:-3" a signed word, "l:70000" a long, anything else a word.
type Step struct {
	Intrinsic string   `yaml:"intrinsic"`
	Args      []string `yaml:"args"`
	Expect    *uint32  `yaml:"expect"`
	Ticks     int      `yaml:"ticks"`
}

// Result is one step's outcome.
type Result struct {
	Step  int
	Name  string
	Value uint32
}

func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("scenario.yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario.yaml: %w", err)
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	names := map[string]bool{}
	add := func(n string) error {
		if n == "" {
			return nil
		}
		if names[n] {
			return fmt.Errorf("duplicate name %q", n)
		}
		names[n] = true
		return nil
	}
	for i, a := range s.Actors {
		if a.ID == 0 || a.ID >= 256 {
			return fmt.Errorf("actors[%d]: id %d out of range 1..255", i, a.ID)
		}
		if err := add(a.Name); err != nil {
			return err
		}
	}
	for i, it := range s.Items {
		if err := add(it.Name); err != nil {
			return err
		}
		placed := 0
		if len(it.At) > 0 {
			placed++
		}
		if it.In != "" {
			placed++
		}
		if it.Equip != "" {
			placed++
		}
		if placed != 1 {
			return fmt.Errorf("items[%d]: exactly one of at, in, equip is required", i)
		}
		if it.In != "" && !names[it.In] {
			return fmt.Errorf("items[%d]: in %q must name an earlier item or actor", i, it.In)
		}
		if it.Equip != "" && !names[it.Equip] {
			return fmt.Errorf("items[%d]: equip %q must name an earlier actor", i, it.Equip)
		}
	}
	for i, st := range s.Steps {
		if _, ok := intrinsics.Lookup(st.Intrinsic); !ok {
			return fmt.Errorf("steps[%d]: %w: %q", i, intrinsics.ErrUnknownIntrinsic, st.Intrinsic)
		}
	}
	return nil
}

func point(v []int32) (geom.Point3, error) {
	switch len(v) {
	case 2:
		return geom.Point3{X: v[0], Y: v[1]}, nil
	case 3:
		return geom.Point3{X: v[0], Y: v[1], Z: v[2]}, nil
	}
	return geom.Point3{}, fmt.Errorf("point needs 2 or 3 coordinates, got %d", len(v))
}

// Populated maps scenario names to the objects they created.
type Populated struct {
	Names map[string]world.ObjID
}

// Apply creates the scenario's objects in w. The main actor, if any,
// becomes the camera's follow target.
func (s *Scenario) Apply(w *world.World) (*Populated, error) {
	pop := &Populated{Names: map[string]world.ObjID{}}

	if len(s.Camera) > 0 {
		p, err := point(s.Camera)
		if err != nil {
			return nil, fmt.Errorf("camera: %w", err)
		}
		w.Camera().MoveToLocation(p)
	}

	for i, a := range s.Actors {
		act := w.CreateActor(world.ObjID(a.ID), a.Shape, a.Frame)
		if act == nil {
			return nil, fmt.Errorf("actors[%d]: cannot create id %d shape %d", i, a.ID, a.Shape)
		}
		if a.Str != 0 {
			act.SetStr(a.Str)
		}
		if a.Dex != 0 {
			act.SetDex(a.Dex)
		}
		if a.Int != 0 {
			act.SetInt(a.Int)
		}
		if a.HP != 0 {
			act.SetHP(a.HP)
		}
		p, err := point(a.At)
		if err != nil {
			return nil, fmt.Errorf("actors[%d]: %w", i, err)
		}
		act.Move(p)
		if a.Name != "" {
			pop.Names[a.Name] = act.ObjID()
		}
	}
	if w.MainActor() != nil {
		w.Camera().SetFollow(world.MainActorID)
	}

	for i, spec := range s.Items {
		it := w.CreateItem(spec.Shape, spec.Frame, spec.Quality, 0, 0, 0, 0, true)
		if it == nil {
			return nil, fmt.Errorf("items[%d]: cannot create shape %d", i, spec.Shape)
		}
		switch {
		case spec.In != "":
			c := w.Container(pop.Names[spec.In])
			if c == nil {
				return nil, fmt.Errorf("items[%d]: %q is not a container", i, spec.In)
			}
			if !it.MoveToContainer(c, true) {
				return nil, fmt.Errorf("items[%d]: %q refused shape %d", i, spec.In, spec.Shape)
			}
		case spec.Equip != "":
			act := w.Actor(pop.Names[spec.Equip])
			if act == nil {
				return nil, fmt.Errorf("items[%d]: %q is not an actor", i, spec.Equip)
			}
			if !act.SetEquip(it, true) {
				return nil, fmt.Errorf("items[%d]: %q cannot equip shape %d", i, spec.Equip, spec.Shape)
			}
		default:
			p, err := point(spec.At)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, err)
			}
			it.Move(p)
		}
		if spec.Name != "" {
			pop.Names[spec.Name] = it.ObjID()
		}
	}
	return pop, nil
}

// Run applies the scenario, runs the warmup ticks and then every step,
// stepping the world after each one as the step asks.
func (s *Scenario) Run(w *world.World) (*Populated, []Result, error) {
	pop, err := s.Apply(w)
	if err != nil {
		return nil, nil, err
	}
	for range s.Warmup {
		w.StepOnce()
	}

	mem := intrinsics.NewScratch()
	var results []Result
	for i, st := range s.Steps {
		args, err := pop.encodeArgs(w, mem, st.Args)
		if err != nil {
			return pop, results, fmt.Errorf("steps[%d] %s: %w", i, st.Intrinsic, err)
		}
		v, err := intrinsics.CallByName(st.Intrinsic, intrinsics.NewCall(w, mem, args))
		if err != nil {
			return pop, results, fmt.Errorf("steps[%d]: %w", i, err)
		}
		results = append(results, Result{Step: i, Name: st.Intrinsic, Value: v})
		if st.Expect != nil && *st.Expect != v {
			return pop, results, fmt.Errorf("%w: steps[%d] %s = %d, want %d", ErrExpectation, i, st.Intrinsic, v, *st.Expect)
		}
		for range st.Ticks {
			w.StepOnce()
		}
	}
	return pop, results, nil
}

// Points passed by reference live in the global segment from here on.
const pointBase = 0x100

func (p *Populated) encodeArgs(w *world.World, mem *intrinsics.Scratch, args []string) ([]byte, error) {
	aw := &intrinsics.ArgWriter{}
	next := uint16(pointBase)
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "@"):
			id, ok := p.Names[a[1:]]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownName, a[1:])
			}
			aw.Item(id)
		case strings.Contains(a, ","):
			var xyz [3]int64
			parts := strings.Split(a, ",")
			if len(parts) != 3 {
				return nil, fmt.Errorf("point %q needs x,y,z", a)
			}
			for i, s := range parts {
				v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
				if err != nil {
					return nil, fmt.Errorf("point %q: %w", a, err)
				}
				xyz[i] = v
			}
			ptr := intrinsics.Ptr(intrinsics.SegGlobal, next)
			next += 8
			intrinsics.PutWorldPoint(mem, ptr, int32(xyz[0]), int32(xyz[1]), int32(xyz[2]))
			aw.Uint32(ptr)
		case strings.HasPrefix(a, "s:"):
			v, err := strconv.ParseInt(a[2:], 10, 16)
			if err != nil {
				return nil, err
			}
			aw.Sint16(int16(v))
		case strings.HasPrefix(a, "l:"):
			v, err := strconv.ParseUint(a[2:], 10, 32)
			if err != nil {
				return nil, err
			}
			aw.Uint32(uint32(v))
		default:
			v, err := strconv.ParseUint(a, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("arg %q: %w", a, err)
			}
			aw.Uint16(uint16(v))
		}
	}
	return aw.Bytes(), nil
}
