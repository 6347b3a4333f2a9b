package core

import "time"

// FixedStep paces simulation updates at a steady steps-per-second rate,
// independent of the frame rate that polls it.
type FixedStep struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
	maxBurst    int
}

// NewFixedStep constructs a FixedStep targeting sps steps per second. At most
// maxBurst steps are reported per poll so a stalled frame cannot snowball.
func NewFixedStep(sps, maxBurst int) *FixedStep {
	if maxBurst <= 0 {
		maxBurst = 1
	}
	fs := &FixedStep{maxBurst: maxBurst}
	fs.SetRate(sps)
	return fs
}

// SetRate changes the step rate. Non-positive rates fall back to 60.
func (f *FixedStep) SetRate(sps int) {
	if sps <= 0 {
		sps = 60
	}
	f.step = time.Second / time.Duration(sps)
}

// Due returns how many steps should run at time now.
func (f *FixedStep) Due(now time.Time) int {
	if f.last.IsZero() {
		f.last = now
		return 0
	}
	f.accumulator += now.Sub(f.last)
	f.last = now
	n := 0
	for f.accumulator >= f.step && n < f.maxBurst {
		f.accumulator -= f.step
		n++
	}
	if n == f.maxBurst {
		f.accumulator = 0
	}
	return n
}
