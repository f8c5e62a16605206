// Package audio is a headless sound-effect mixer for the world. Effects
// are synthesized tones mixed with beep; nothing is sent to a speaker
// unless the caller plays the Mixer itself as a beep.Streamer.
package audio

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"u8sim/internal/sim/world"
)

const (
	SampleRate = beep.SampleRate(22050)

	// Channels is how many effects may sound at once.
	Channels = 8

	noteLength = 120 * time.Millisecond
)

type channel struct {
	sfx      int
	priority int
	obj      world.ObjID
	ctrl     *beep.Ctrl
	done     bool
}

// Mixer implements world.Audio.
type Mixer struct {
	mu    sync.Mutex
	rate  beep.SampleRate
	mix   *beep.Mixer
	chans []*channel
	buf   [][2]float64
	log   *log.Logger
}

func NewMixer(logger *log.Logger) *Mixer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Mixer{
		rate: SampleRate,
		mix:  &beep.Mixer{},
		log:  logger,
	}
}

// Attach installs m as the world's audio and renders one tick of sound
// before every world tick.
func (m *Mixer) Attach(w *world.World) {
	w.SetAudio(m)
	n := m.rate.N(time.Second / time.Duration(w.Tuning().TickRateHz))
	w.Kernel().OnPreTick(func() { m.Render(n) })
}

// PlaySFX starts sfx on obj. When every channel is busy the quietest
// lower-or-equal priority effect is cut; otherwise the new one is dropped.
func (m *Mixer) PlaySFX(sfx, priority int, obj world.ObjID, loops int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.chans) >= Channels {
		victim := -1
		for i, ch := range m.chans {
			if ch.priority > priority {
				continue
			}
			if victim < 0 || ch.priority < m.chans[victim].priority {
				victim = i
			}
		}
		if victim < 0 {
			m.log.Debug("sfx dropped", "sfx", sfx, "obj", obj, "priority", priority)
			return
		}
		m.stopLocked(victim)
	}

	ch := &channel{sfx: sfx, priority: priority, obj: obj}
	body := newVolume(newTone(m.rate, toneFreq(sfx), loops), priorityVolume(priority))
	ch.ctrl = &beep.Ctrl{Streamer: beep.Seq(body, beep.Callback(func() { ch.done = true }))}
	m.chans = append(m.chans, ch)
	m.mix.Add(ch.ctrl)
}

// StopSFX stops sfx on obj; sfx -1 stops everything on obj.
func (m *Mixer) StopSFX(sfx int, obj world.ObjID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.chans) - 1; i >= 0; i-- {
		ch := m.chans[i]
		if ch.obj == obj && (sfx == -1 || ch.sfx == sfx) {
			m.stopLocked(i)
		}
	}
}

func (m *Mixer) IsSFXPlaying(sfx int, obj world.ObjID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.chans {
		if !ch.done && ch.sfx == sfx && ch.obj == obj {
			return true
		}
	}
	return false
}

// Playing is the number of busy channels.
func (m *Mixer) Playing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chans)
}

func (m *Mixer) stopLocked(i int) {
	ch := m.chans[i]
	ch.ctrl.Streamer = nil
	ch.done = true
	m.chans = append(m.chans[:i], m.chans[i+1:]...)
}

func (m *Mixer) reapLocked() {
	live := m.chans[:0]
	for _, ch := range m.chans {
		if !ch.done {
			live = append(live, ch)
		}
	}
	clear(m.chans[len(live):])
	m.chans = live
}

// Stream lets the Mixer feed a speaker.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mix.Stream(samples)
	m.reapLocked()
	return len(samples), true
}

func (m *Mixer) Err() error { return nil }

// Render advances every channel by n samples and returns the peak level.
func (m *Mixer) Render(n int) float64 {
	if cap(m.buf) < n {
		m.buf = make([][2]float64, n)
	}
	buf := m.buf[:n]
	clear(buf)
	m.Stream(buf)
	peak := 0.0
	for _, s := range buf {
		peak = math.Max(peak, math.Max(math.Abs(s[0]), math.Abs(s[1])))
	}
	return peak
}

// toneFreq spreads effect numbers over four octaves from A2.
func toneFreq(sfx int) float64 {
	if sfx < 0 {
		sfx = -sfx
	}
	return 110 * math.Pow(2, float64(sfx%48)/12)
}

func priorityVolume(priority int) float64 {
	return 0.25 + 0.75*math.Min(float64(max(priority, 0))/0x80, 1)
}

func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// tone is a decaying square-ish note repeated loops+1 times; a negative
// loops repeats forever.
type tone struct {
	rate  float64
	freq  float64
	note  int
	pos   int
	loops int
}

func newTone(rate beep.SampleRate, freq float64, loops int) *tone {
	return &tone{rate: float64(rate), freq: freq, note: rate.N(noteLength), loops: loops}
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if t.pos >= t.note {
			if t.loops == 0 {
				return i, i > 0
			}
			if t.loops > 0 {
				t.loops--
			}
			t.pos = 0
		}
		sec := float64(t.pos) / t.rate
		env := math.Exp(-sec * 18)
		v := 0.3 * env * (math.Sin(2*math.Pi*t.freq*sec) + 0.3*math.Sin(6*math.Pi*t.freq*sec))
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }
