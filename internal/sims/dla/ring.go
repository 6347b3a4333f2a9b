package dla

import "fmt"

// RingMask flags the boundary ring slots a disc reaches into.
type RingMask uint8

const (
	RingTop RingMask = 1 << iota
	RingBottom
	RingLeft
	RingRight
	RingTopLeft
	RingTopRight
	RingBottomLeft
	RingBottomRight
)

const ringSlots = 8

// ringOffsets holds each slot's position in domain-size units, in bit order.
var ringOffsets = [ringSlots][2]int{
	{0, -1}, {0, 1}, {-1, 0}, {1, 0},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// TouchesBoundary reports whether any slot is flagged.
func (m RingMask) TouchesBoundary() bool { return m != 0 }

// Has reports whether slot i is flagged.
func (m RingMask) Has(i int) bool { return m&(1<<i) != 0 }

// Classify returns the ring slots overlapped by the bounding square of the
// disc at p with the given radius, for a primary domain [0,size]².
func Classify(p Vec2, radius, size float64) RingMask {
	cols := axisSlots(p.X, radius, size)
	rows := axisSlots(p.Y, radius, size)
	var m RingMask
	for i, off := range ringOffsets {
		if cols&(1<<(off[0]+1)) != 0 && rows&(1<<(off[1]+1)) != 0 {
			m |= 1 << i
		}
	}
	return m
}

// axisSlots sets bit 0 for "below 0", bit 1 for "inside", bit 2 for "past size".
func axisSlots(v, r, size float64) uint8 {
	var s uint8
	if v-r < 0 {
		s |= 0b001
	}
	if v+r > 0 && v-r < size {
		s |= 0b010
	}
	if v+r > size {
		s |= 0b100
	}
	return s
}

// Ring holds the eight lazily created trees mirrored around the primary
// domain. Each slot is a full tree the size of the primary root.
type Ring struct {
	size   float64
	radius float64
	opts   treeOptions
	slots  [ringSlots]*Tree
}

func newRing(size, radius float64, collisionDepth int) *Ring {
	return &Ring{
		size:   size,
		radius: radius,
		opts: treeOptions{
			collisionDepth: collisionDepth,
			boxDepth:       collisionDepth,
			boundary:       true,
		},
	}
}

// Insert forwards idx to every slot in mask and returns the slots that were
// created by this call.
func (r *Ring) Insert(idx int32, p Vec2, mask RingMask) (RingMask, error) {
	var created RingMask
	for i := 0; i < ringSlots; i++ {
		if !mask.Has(i) {
			continue
		}
		if r.slots[i] == nil {
			off := ringOffsets[i]
			origin := Vec2{float64(off[0]) * r.size, float64(off[1]) * r.size}
			r.slots[i] = newTree(origin, r.size, r.radius, r.opts)
			created |= 1 << i
		}
		if err := r.slots[i].Insert(idx, p); err != nil {
			return created, fmt.Errorf("ring slot %d: %w", i, err)
		}
	}
	return created, nil
}

// Active reports which slots have been created.
func (r *Ring) Active() RingMask {
	var m RingMask
	for i, s := range r.slots {
		if s != nil {
			m |= 1 << i
		}
	}
	return m
}

// Slot returns the tree for slot i, or nil if it was never activated.
func (r *Ring) Slot(i int) *Tree {
	if i < 0 || i >= ringSlots {
		return nil
	}
	return r.slots[i]
}

func (r *Ring) collect(box rect, out []int32) []int32 {
	for _, s := range r.slots {
		if s == nil {
			continue
		}
		origin, side := s.Bounds()
		if !square(origin, side).intersects(box) {
			continue
		}
		out = s.collect(box, out)
	}
	return out
}
