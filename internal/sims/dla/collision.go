package dla

import "math"

// OutcomeKind classifies the result of a swept collision query.
type OutcomeKind uint8

const (
	// NoContact means the whole step is free.
	NoContact OutcomeKind = iota
	// Contact means the walker first touches Target at fraction T of the step.
	Contact
	// Overlap means the walker already overlaps Target before moving; T is the
	// (negative) step fraction at which the two discs were last tangent.
	Overlap
)

func (k OutcomeKind) String() string {
	switch k {
	case NoContact:
		return "no-contact"
	case Contact:
		return "contact"
	case Overlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// Outcome is the answer of Resolver.Resolve.
type Outcome struct {
	Kind   OutcomeKind
	T      float64
	Target int32
}

// Resolver answers continuous collision queries against the stuck set
// through the primary tree and any active ring slots. It never mutates them.
type Resolver struct {
	tree   *Tree
	ring   *Ring
	stuck  *StuckSet
	radius float64
	size   float64
	eps    float64

	candidates []int32
}

func newResolver(tree *Tree, ring *Ring, stuck *StuckSet, radius, size, eps float64) *Resolver {
	return &Resolver{tree: tree, ring: ring, stuck: stuck, radius: radius, size: size, eps: eps}
}

// Resolve finds the first contact of a disc moving from p0 along v with any
// stuck disc of the same radius. Ties go to the lowest stuck index.
func (r *Resolver) Resolve(p0, v Vec2) Outcome {
	reach := 2 * r.radius
	box := segmentBounds(p0, v, reach+r.eps)
	r.candidates = r.tree.collect(box, r.candidates[:0])
	if r.ring != nil && (box.min.X < 0 || box.min.Y < 0 || box.max.X > r.size || box.max.Y > r.size) {
		r.candidates = r.ring.collect(box, r.candidates)
	}

	hit := Outcome{Kind: NoContact, T: math.Inf(1), Target: absent}
	over := Outcome{Kind: Overlap, T: math.Inf(1), Target: absent}
	a := v.Dot(v)
	for _, idx := range r.candidates {
		d := p0.Sub(r.stuck.At(idx))
		dist := d.Len()
		if dist < reach-r.eps {
			t := 0.0
			if a > 0 {
				b := 2 * d.Dot(v)
				c := dist*dist - reach*reach
				t = (-b - math.Sqrt(b*b-4*a*c)) / (2 * a)
			}
			if better(t, idx, over.T, over.Target) {
				over.T, over.Target = t, idx
			}
			continue
		}
		t, ok := r.contactTime(d, v, a, reach)
		if ok && better(t, idx, hit.T, hit.Target) {
			hit.Kind, hit.T, hit.Target = Contact, t, idx
		}
	}
	if over.Target != absent {
		return over
	}
	if hit.Kind == NoContact {
		hit.T = 0
	}
	return hit
}

// contactTime solves |d + t v| = reach for the entry root in [0,1]. Passes
// within eps of tangency count as contact at the closest approach. A start
// already inside reach (but within eps of it) that heads inward touches at 0.
func (r *Resolver) contactTime(d, v Vec2, a, reach float64) (float64, bool) {
	if a == 0 {
		return 0, false
	}
	dv := d.Dot(v)
	if dv >= 0 {
		return 0, false
	}
	if d.Dot(d) < reach*reach {
		return 0, true
	}
	tc := -dv / a
	closest := d.Add(v.Scale(tc)).Len()
	if closest > reach+r.eps {
		return 0, false
	}
	t := tc
	if closest < reach {
		b := 2 * dv
		c := d.Dot(d) - reach*reach
		disc := b*b - 4*a*c
		if disc < 0 {
			disc = 0
		}
		t = (-b - math.Sqrt(disc)) / (2 * a)
	}
	slack := r.eps / math.Sqrt(a)
	if t < -slack || t > 1+slack {
		return 0, false
	}
	return math.Min(math.Max(t, 0), 1), true
}

// Overlaps reports whether a disc at p would overlap any stuck disc.
func (r *Resolver) Overlaps(p Vec2) bool {
	return r.Resolve(p, Vec2{}).Kind == Overlap
}

func better(t float64, idx int32, bestT float64, bestIdx int32) bool {
	if bestIdx == absent || t < bestT {
		return true
	}
	return t == bestT && idx < bestIdx
}
