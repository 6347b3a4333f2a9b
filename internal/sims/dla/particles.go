package dla

import "math"

// StuckSet is the append-only store of frozen particle centres. Index 0 is
// the seed.
type StuckSet struct {
	pos       []Vec2
	centre    Vec2
	enclosing float64
}

func newStuckSet(capacity int, centre Vec2) *StuckSet {
	return &StuckSet{pos: make([]Vec2, 0, capacity), centre: centre}
}

// Add appends p and returns its index.
func (s *StuckSet) Add(p Vec2) int32 {
	s.pos = append(s.pos, p)
	if d := p.Sub(s.centre).Len(); d > s.enclosing {
		s.enclosing = d
	}
	return int32(len(s.pos) - 1)
}

// Len returns the number of stuck particles, seed included.
func (s *StuckSet) Len() int { return len(s.pos) }

// At returns the centre of stuck particle i.
func (s *StuckSet) At(i int32) Vec2 { return s.pos[i] }

// EnclosingRadius is the largest distance from the domain centre to any stuck centre.
func (s *StuckSet) EnclosingRadius() float64 { return s.enclosing }

// Positions returns a copy of every stuck centre in insertion order.
func (s *StuckSet) Positions() []Vec2 {
	return append([]Vec2(nil), s.pos...)
}

// WalkingSet holds mobile particles and the step each one carries into the
// next update. Frozen slots are tombstoned with a NaN position until Compact.
type WalkingSet struct {
	pos  []Vec2
	step []Vec2
	live int
}

func newWalkingSet(capacity int) *WalkingSet {
	return &WalkingSet{pos: make([]Vec2, 0, capacity), step: make([]Vec2, 0, capacity)}
}

func (w *WalkingSet) add(p, step Vec2) {
	w.pos = append(w.pos, p)
	w.step = append(w.step, step)
	w.live++
}

// Slots returns the number of slots, tombstones included.
func (w *WalkingSet) Slots() int { return len(w.pos) }

// Live returns the number of particles still walking.
func (w *WalkingSet) Live() int { return w.live }

// Frozen reports whether slot i has been tombstoned.
func (w *WalkingSet) Frozen(i int) bool { return w.pos[i].IsNaN() }

func (w *WalkingSet) freeze(i int) {
	if w.Frozen(i) {
		return
	}
	w.pos[i] = tombstone
	w.step[i] = Vec2{}
	w.live--
}

// Compact removes tombstoned slots, keeping survivors in their original
// order, and returns how many slots were dropped.
func (w *WalkingSet) Compact() int {
	n := 0
	for i := range w.pos {
		if w.pos[i].IsNaN() {
			continue
		}
		w.pos[n] = w.pos[i]
		w.step[n] = w.step[i]
		n++
	}
	dropped := len(w.pos) - n
	w.pos = w.pos[:n]
	w.step = w.step[:n]
	return dropped
}

// Positions returns a copy of every live walker position in slot order.
func (w *WalkingSet) Positions() []Vec2 {
	out := make([]Vec2, 0, w.live)
	for _, p := range w.pos {
		if !p.IsNaN() {
			out = append(out, p)
		}
	}
	return out
}

// clip clamps slot i into [lo,hi]² and flips the stored step on every axis
// where the walker is not strictly inside, so the next update bounces off
// the border.
func (w *WalkingSet) clip(i int, lo, hi float64) {
	p, s := w.pos[i], w.step[i]
	if p.X <= lo || p.X >= hi {
		p.X = math.Min(math.Max(p.X, lo), hi)
		s.X = -s.X
	}
	if p.Y <= lo || p.Y >= hi {
		p.Y = math.Min(math.Max(p.Y, lo), hi)
		s.Y = -s.Y
	}
	w.pos[i], w.step[i] = p, s
}
