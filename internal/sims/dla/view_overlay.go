package dla

// EnclosingCircle returns the circle about the domain centre that contains
// every stuck disc, in raster units.
func (v *View) EnclosingCircle() (x, y, r float64) {
	c := v.sim.stuck.centre
	return c.X, c.Y, v.sim.stuck.EnclosingRadius() + v.sim.cfg.Radius
}

// BoundaryEdges returns the stretches of the domain border that face an
// activated ring slot, as x0, y0, x1, y1 segments. Corner slots contribute
// a short arm along each adjoining edge.
func (v *View) BoundaryEdges() [][4]float64 {
	s := v.sim.cfg.DomainSize
	arm := min(s, 4*v.sim.cfg.Radius)
	active := v.sim.ring.Active()
	var out [][4]float64
	for i, off := range ringOffsets {
		if !active.Has(i) {
			continue
		}
		x := edgeCoord(off[0], s)
		y := edgeCoord(off[1], s)
		switch {
		case off[0] == 0:
			out = append(out, [4]float64{0, y, s, y})
		case off[1] == 0:
			out = append(out, [4]float64{x, 0, x, s})
		default:
			out = append(out,
				[4]float64{x, y, x - float64(off[0])*arm, y},
				[4]float64{x, y, x, y - float64(off[1])*arm},
			)
		}
	}
	return out
}

func edgeCoord(off int, size float64) float64 {
	if off > 0 {
		return size
	}
	return 0
}

// CollisionLeaves returns the primary tree's occupied collision leaves as
// x, y, side squares.
func (v *View) CollisionLeaves() [][3]float64 {
	t := v.sim.tree
	var out [][3]float64
	t.walk(func(_ int32, c *cell) {
		if c.kind != kindCollisionLeaf || c.bucket == absent || len(t.buckets[c.bucket]) == 0 {
			return
		}
		out = append(out, [3]float64{c.origin.X, c.origin.Y, c.side})
	})
	return out
}
