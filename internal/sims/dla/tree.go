package dla

import "fmt"

type cellKind uint8

const (
	kindInterior cellKind = iota
	// kindCollisionLeaf owns a bucket of stuck indices for narrow-phase tests.
	kindCollisionLeaf
	// kindBoxLeaf is indivisible and only records touched sub-quadrants.
	kindBoxLeaf
	// kindBoundaryRoot roots a ring slot outside the primary square.
	kindBoundaryRoot
)

const absent int32 = -1

// Quadrant order: top-left, top-right, bottom-left, bottom-right. Bit 0 of a
// quadrant index is the column, bit 1 the row.
const quadrants = 4

type cell struct {
	origin    Vec2
	side      float64
	children  [quadrants]int32
	bucket    int32
	depth     uint8
	kind      cellKind
	mask      uint8
	full      bool
	canBeFull bool
}

type treeOptions struct {
	collisionDepth int
	// boxDepth equal to collisionDepth means collision leaves are the bottom.
	boxDepth int
	boundary bool
	noPrune  bool
}

// Tree is an arena-backed quadtree indexing stuck particle discs. Cell 0 is
// the root; released cells and buckets are recycled through free lists.
type Tree struct {
	opts   treeOptions
	radius float64

	cells       []cell
	freeCells   []int32
	buckets     [][]int32
	freeBuckets []int32

	last    int32
	touched bool
}

func newTree(origin Vec2, side, radius float64, opts treeOptions) *Tree {
	t := &Tree{opts: opts, radius: radius, last: -1}
	t.alloc(origin, side, 0)
	return t
}

// Bounds returns the root square's origin and side.
func (t *Tree) Bounds() (Vec2, float64) {
	return t.cells[0].origin, t.cells[0].side
}

// Cells reports the number of live cells in the arena.
func (t *Tree) Cells() int { return len(t.cells) - len(t.freeCells) }

// Empty reports whether no disc has reached the root square yet.
func (t *Tree) Empty() bool { return !t.touched }

// Full reports whether the root itself has been declared full.
func (t *Tree) Full() bool { return t.cells[0].full }

// Insert registers stuck particle idx centred at p. Indices must arrive in
// strictly increasing order; anything else is a caller bug.
func (t *Tree) Insert(idx int32, p Vec2) error {
	if idx <= t.last {
		return fmt.Errorf("%w: %d (last %d)", ErrDuplicateIndex, idx, t.last)
	}
	t.last = idx
	root := &t.cells[0]
	if root.full || !discTouches(p, t.radius, square(root.origin, root.side)) {
		return nil
	}
	t.touched = true
	t.insert(0, idx, p)
	return nil
}

func (t *Tree) insert(ci, idx int32, p Vec2) {
	c := &t.cells[ci]
	if c.full {
		return
	}
	r := t.radius
	covered := c.canBeFull && discCovers(p, r, square(c.origin, c.side))
	if covered && !t.opts.noPrune {
		t.markFull(ci)
		return
	}

	switch c.kind {
	case kindCollisionLeaf:
		t.buckets[c.bucket] = append(t.buckets[c.bucket], idx)
		if t.opts.boxDepth <= t.opts.collisionDepth {
			return
		}
	case kindBoxLeaf:
		c.mask |= touchedQuadrants(p, r, c.origin, c.side)
		if covered || c.mask == 0xF {
			c.full = true
		}
		return
	}

	half := c.side / 2
	origin := c.origin
	cols := spans(p.X-(origin.X+half), r)
	rows := spans(p.Y-(origin.Y+half), r)
	for q := 0; q < quadrants; q++ {
		col, row := q&1, q>>1
		if cols&(1<<col) == 0 || rows&(1<<row) == 0 {
			continue
		}
		o := Vec2{origin.X + float64(col)*half, origin.Y + float64(row)*half}
		if !discTouches(p, r, square(o, half)) {
			continue
		}
		child := t.cells[ci].children[q]
		if child == absent {
			child = t.alloc(o, half, int(t.cells[ci].depth)+1)
			t.cells[ci].children[q] = child
		}
		t.insert(child, idx, p)
	}

	if t.cells[ci].canBeFull && (covered || t.childrenFull(ci)) {
		t.markFull(ci)
	}
}

// spans maps the signed offset of a disc centre from a cell midpoint to the
// halves (bit 0 low, bit 1 high) its bounding square reaches on that axis.
func spans(d, r float64) uint8 {
	switch {
	case d <= -r:
		return 0b01
	case d >= r:
		return 0b10
	default:
		return 0b11
	}
}

func touchedQuadrants(p Vec2, r float64, origin Vec2, side float64) uint8 {
	half := side / 2
	var m uint8
	for q := 0; q < quadrants; q++ {
		o := Vec2{origin.X + float64(q&1)*half, origin.Y + float64(q>>1)*half}
		if discTouches(p, r, square(o, half)) {
			m |= 1 << q
		}
	}
	return m
}

func (t *Tree) childrenFull(ci int32) bool {
	for _, ch := range t.cells[ci].children {
		if ch == absent || !t.cells[ch].full {
			return false
		}
	}
	return true
}

func (t *Tree) markFull(ci int32) {
	t.cells[ci].full = true
	if t.opts.noPrune {
		return
	}
	c := &t.cells[ci]
	children := c.children
	c.children = [quadrants]int32{absent, absent, absent, absent}
	if c.bucket != absent {
		t.releaseBucket(c.bucket)
		c.bucket = absent
	}
	for _, ch := range children {
		if ch != absent {
			t.release(ch)
		}
	}
}

func (t *Tree) alloc(origin Vec2, side float64, depth int) int32 {
	c := cell{
		origin:   origin,
		side:     side,
		children: [quadrants]int32{absent, absent, absent, absent},
		bucket:   absent,
		depth:    uint8(depth),
	}
	switch {
	case depth == 0 && t.opts.boundary:
		c.kind = kindBoundaryRoot
	case depth == t.opts.collisionDepth:
		c.kind = kindCollisionLeaf
		c.bucket = t.allocBucket()
	case depth == t.opts.boxDepth:
		c.kind = kindBoxLeaf
	}
	if t.opts.boundary {
		c.canBeFull = depth < t.opts.collisionDepth
	} else {
		c.canBeFull = depth > t.opts.collisionDepth
	}

	if n := len(t.freeCells); n > 0 {
		ci := t.freeCells[n-1]
		t.freeCells = t.freeCells[:n-1]
		t.cells[ci] = c
		return ci
	}
	t.cells = append(t.cells, c)
	return int32(len(t.cells) - 1)
}

func (t *Tree) release(ci int32) {
	c := &t.cells[ci]
	children := c.children
	if c.bucket != absent {
		t.releaseBucket(c.bucket)
	}
	*c = cell{children: [quadrants]int32{absent, absent, absent, absent}, bucket: absent, full: true}
	t.freeCells = append(t.freeCells, ci)
	for _, ch := range children {
		if ch != absent {
			t.release(ch)
		}
	}
}

func (t *Tree) allocBucket() int32 {
	if n := len(t.freeBuckets); n > 0 {
		b := t.freeBuckets[n-1]
		t.freeBuckets = t.freeBuckets[:n-1]
		t.buckets[b] = t.buckets[b][:0]
		return b
	}
	t.buckets = append(t.buckets, nil)
	return int32(len(t.buckets) - 1)
}

func (t *Tree) releaseBucket(b int32) {
	t.buckets[b] = t.buckets[b][:0]
	t.freeBuckets = append(t.freeBuckets, b)
}

// collect appends the bucket contents of every collision leaf whose square
// intersects box. Entries may repeat when a disc spans several leaves.
func (t *Tree) collect(box rect, out []int32) []int32 {
	return t.collectFrom(0, box, out)
}

func (t *Tree) collectFrom(ci int32, box rect, out []int32) []int32 {
	c := &t.cells[ci]
	if !square(c.origin, c.side).intersects(box) {
		return out
	}
	if c.kind == kindCollisionLeaf {
		if c.bucket != absent {
			out = append(out, t.buckets[c.bucket]...)
		}
		return out
	}
	for _, ch := range c.children {
		if ch != absent {
			out = t.collectFrom(ch, box, out)
		}
	}
	return out
}

// walk visits every live cell reachable from the root, parents first.
func (t *Tree) walk(fn func(ci int32, c *cell)) {
	var visit func(ci int32)
	visit = func(ci int32) {
		c := &t.cells[ci]
		fn(ci, c)
		for _, ch := range c.children {
			if ch != absent {
				visit(ch)
			}
		}
	}
	visit(0)
}
