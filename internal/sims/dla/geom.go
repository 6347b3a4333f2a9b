package dla

import "math"

// Vec2 is a point or displacement in simulation units. Y grows downward.
type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v*s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// IsNaN reports whether either component is NaN.
func (v Vec2) IsNaN() bool { return math.IsNaN(v.X) || math.IsNaN(v.Y) }

var tombstone = Vec2{math.NaN(), math.NaN()}

// rect is an axis-aligned square or box given by its min and max corners.
type rect struct {
	min, max Vec2
}

func square(origin Vec2, side float64) rect {
	return rect{min: origin, max: Vec2{origin.X + side, origin.Y + side}}
}

func (r rect) intersects(o rect) bool {
	return r.min.X < o.max.X && o.min.X < r.max.X && r.min.Y < o.max.Y && o.min.Y < r.max.Y
}

// distSq returns the squared distance from p to the closest point of r.
func (r rect) distSq(p Vec2) float64 {
	dx := 0.0
	if p.X < r.min.X {
		dx = r.min.X - p.X
	} else if p.X > r.max.X {
		dx = p.X - r.max.X
	}
	dy := 0.0
	if p.Y < r.min.Y {
		dy = r.min.Y - p.Y
	} else if p.Y > r.max.Y {
		dy = p.Y - r.max.Y
	}
	return dx*dx + dy*dy
}

// farthestSq returns the squared distance from p to the farthest corner of r.
func (r rect) farthestSq(p Vec2) float64 {
	dx := math.Max(math.Abs(p.X-r.min.X), math.Abs(p.X-r.max.X))
	dy := math.Max(math.Abs(p.Y-r.min.Y), math.Abs(p.Y-r.max.Y))
	return dx*dx + dy*dy
}

// discTouches reports whether the open disc (p, radius) intersects r.
func discTouches(p Vec2, radius float64, r rect) bool {
	return r.distSq(p) < radius*radius
}

// discCovers reports whether r lies strictly inside the disc (p, radius).
func discCovers(p Vec2, radius float64, r rect) bool {
	return r.farthestSq(p) < radius*radius
}

// segmentBounds returns the bounding box of the segment p0..p0+v grown by pad.
func segmentBounds(p0, v Vec2, pad float64) rect {
	p1 := p0.Add(v)
	return rect{
		min: Vec2{math.Min(p0.X, p1.X) - pad, math.Min(p0.Y, p1.Y) - pad},
		max: Vec2{math.Max(p0.X, p1.X) + pad, math.Max(p0.Y, p1.Y) + pad},
	}
}
