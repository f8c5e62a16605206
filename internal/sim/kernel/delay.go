package kernel

import "u8sim/internal/sim/encoding"

const classDelayProcess = "DelayProcess"

// DelayProcess terminates after a fixed number of ticks. Other processes
// wait on it to sleep.
type DelayProcess struct {
	Base
	count int32
}

func NewDelayProcess(ticks int32) *DelayProcess {
	return &DelayProcess{Base: NewBase(0, 0), count: ticks}
}

func (d *DelayProcess) ClassName() string { return classDelayProcess }
func (d *DelayProcess) Remaining() int32  { return d.count }

func (d *DelayProcess) Run() {
	d.count--
	if d.count <= 0 {
		d.Terminate()
	}
}

func (d *DelayProcess) SaveData(w *encoding.Writer) {
	d.Base.SaveData(w)
	w.WriteI32(d.count)
}

func (d *DelayProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := d.Base.LoadData(r, version); err != nil {
		return err
	}
	d.count = r.ReadI32()
	return r.Err()
}
