// Package debugview draws observer TICK frames as a top-down terminal map.
package debugview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"u8sim/internal/observerproto"
	"u8sim/internal/sim/catalogs"
)

const (
	defaultScale = 32
	minScale     = 4
	maxScale     = 512
)

var (
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleItem   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleFixed  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleActor  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleAvatar = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleDead   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleTarget = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
	styleCamera = tcell.StyleDefault.Foreground(tcell.ColorBlue)
)

// Viewer keeps the last frame so pans and zooms redraw without waiting
// for the next tick.
type Viewer struct {
	screen tcell.Screen
	shapes *catalogs.ShapeCatalog

	// World units per cell.
	scale int32
	panX  int32
	panY  int32

	last *observerproto.TickMsg
}

func New(screen tcell.Screen, shapes *catalogs.ShapeCatalog) *Viewer {
	return &Viewer{screen: screen, shapes: shapes, scale: defaultScale}
}

func (v *Viewer) Scale() int32 { return v.scale }

// Apply decodes one TICK frame and draws it.
func (v *Viewer) Apply(frame []byte) error {
	var msg observerproto.TickMsg
	if err := json.Unmarshal(frame, &msg); err != nil {
		return fmt.Errorf("debugview: %w", err)
	}
	if msg.Type != observerproto.TypeTick {
		return nil
	}
	v.last = &msg
	v.Draw()
	return nil
}

// CellOf maps a world point to a screen cell. ok is false off screen.
func (v *Viewer) CellOf(x, y int32) (cx, cy int, ok bool) {
	if v.last == nil {
		return 0, 0, false
	}
	w, h := v.screen.Size()
	ox := v.last.Camera[0] + v.panX
	oy := v.last.Camera[1] + v.panY
	cx = w/2 + int(floorDiv(x-ox, v.scale))
	cy = 1 + (h-1)/2 + int(floorDiv(y-oy, v.scale))
	return cx, cy, cx >= 0 && cx < w && cy >= 1 && cy < h
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (v *Viewer) Draw() {
	s := v.screen
	s.Clear()
	w, _ := s.Size()
	msg := v.last
	if msg == nil {
		drawText(s, 0, 0, w, styleStatus, "waiting for first tick")
		s.Show()
		return
	}

	actors := make(map[uint16]observerproto.ActorState, len(msg.Actors))
	for _, a := range msg.Actors {
		actors[a.ID] = a
	}

	if cx, cy, ok := v.CellOf(msg.Camera[0], msg.Camera[1]); ok {
		s.SetContent(cx, cy, '+', nil, styleCamera)
	}
	// Items first so actors are drawn over whatever they stand on.
	for _, it := range msg.Items {
		if it.Parent != 0 {
			continue
		}
		if _, isActor := actors[it.ID]; isActor {
			continue
		}
		v.plot(it, v.itemGlyph(it))
	}
	for _, it := range msg.Items {
		a, isActor := actors[it.ID]
		if !isActor || it.Parent != 0 {
			continue
		}
		g := glyph{'A', styleActor}
		switch {
		case a.Dead:
			g = glyph{'x', styleDead}
		case it.ID == msg.Controlled:
			g = glyph{'@', styleAvatar}
		}
		v.plot(it, g)
	}
	if msg.Target != 0 {
		for _, it := range msg.Items {
			if it.ID == msg.Target {
				if cx, cy, ok := v.CellOf(it.Pos[0], it.Pos[1]); ok {
					r, _, _, _ := s.GetContent(cx, cy)
					s.SetContent(cx, cy, r, nil, styleTarget)
				}
			}
		}
	}

	status := fmt.Sprintf(" tick %d  items %d  actors %d  procs %d  ethereal %d  1:%d  %s",
		msg.Tick, len(msg.Items), len(msg.Actors), len(msg.Processes), len(msg.Ethereal), v.scale, msg.Digest)
	drawText(s, 0, 0, w, styleStatus, status)
	s.Show()
}

type glyph struct {
	r     rune
	style tcell.Style
}

func (v *Viewer) plot(it observerproto.ItemState, g glyph) {
	if cx, cy, ok := v.CellOf(it.Pos[0], it.Pos[1]); ok {
		v.screen.SetContent(cx, cy, g.r, nil, g.style)
	}
}

func (v *Viewer) itemGlyph(it observerproto.ItemState) glyph {
	var si *catalogs.ShapeInfo
	if v.shapes != nil {
		si = v.shapes.Shape(it.Shape)
	}
	if si == nil {
		return glyph{'?', styleItem}
	}
	if si.Flags&catalogs.SIFixed != 0 {
		return glyph{'#', styleFixed}
	}
	switch si.Family {
	case catalogs.FamilyContainer:
		return glyph{'&', styleItem}
	case catalogs.FamilyQuantity, catalogs.FamilyReagent:
		return glyph{'$', styleItem}
	case catalogs.FamilyBreakable:
		return glyph{'o', styleItem}
	case catalogs.FamilyCruWeapon, catalogs.FamilyCruAmmo:
		return glyph{'/', styleItem}
	case catalogs.FamilyUnkEgg, catalogs.FamilyGlobEgg, catalogs.FamilyMonsterEgg, catalogs.FamilyTeleEgg:
		return glyph{'*', styleFixed}
	}
	return glyph{'.', styleItem}
}

func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		if col >= width {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}

// HandleKey applies a key press. It reports false when the viewer should
// quit.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		v.panX -= 4 * v.scale
	case tcell.KeyRight:
		v.panX += 4 * v.scale
	case tcell.KeyUp:
		v.panY -= 4 * v.scale
	case tcell.KeyDown:
		v.panY += 4 * v.scale
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case '+', '=':
			v.scale = max(v.scale/2, minScale)
		case '-':
			v.scale = min(v.scale*2, maxScale)
		case '0':
			v.panX, v.panY = 0, 0
			v.scale = defaultScale
		}
	}
	v.Draw()
	return true
}

// Run draws frames as they arrive until ctx ends, frames closes or the
// user quits.
func (v *Viewer) Run(ctx context.Context, frames <-chan []byte) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := v.Apply(f); err != nil {
				return err
			}
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.HandleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				v.screen.Sync()
				v.Draw()
			}
		}
	}
}
