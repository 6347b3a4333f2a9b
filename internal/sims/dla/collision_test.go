package dla

import (
	"math"
	"math/rand/v2"
	"testing"
)

// newBare returns a simulation with only the seed stuck and no walkers.
func newBare(t *testing.T, size, radius float64, seed Vec2) *Simulation {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DomainSize = size
	cfg.Radius = radius
	cfg.MaxParticles = 0
	cfg.SeedPosition = seed
	FitResolution(&cfg)
	s, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestResolveHeadOn(t *testing.T) {
	s := newBare(t, 16, 2, Vec2{6, 0})
	out := s.Resolver().Resolve(Vec2{0, 0}, Vec2{10, 0})
	if out.Kind != Contact || out.Target != 0 {
		t.Fatalf("outcome = %+v, want contact with 0", out)
	}
	if math.Abs(out.T-0.2) > 1e-12 {
		t.Fatalf("t = %v, want 0.2", out.T)
	}
}

func TestResolveMissAndRest(t *testing.T) {
	s := newBare(t, 16, 2, Vec2{8, 8})
	r := s.Resolver()
	if out := r.Resolve(Vec2{1, 1}, Vec2{0, 1}); out.Kind != NoContact {
		t.Fatalf("parallel miss = %+v", out)
	}
	if out := r.Resolve(Vec2{1, 1}, Vec2{}); out.Kind != NoContact {
		t.Fatalf("resting walker = %+v", out)
	}
	// Moving away from a disc it is tangent to is not a contact.
	if out := r.Resolve(Vec2{4, 8}, Vec2{-1, 0}); out.Kind != NoContact {
		t.Fatalf("departing walker = %+v", out)
	}
}

func TestResolveOverlapReportsTangentFraction(t *testing.T) {
	s := newBare(t, 32, 2, Vec2{10, 10})
	r := s.Resolver()
	out := r.Resolve(Vec2{11, 10}, Vec2{2, 0})
	if out.Kind != Overlap || out.Target != 0 {
		t.Fatalf("outcome = %+v, want overlap with 0", out)
	}
	if math.Abs(out.T+2.5) > 1e-12 {
		t.Fatalf("t = %v, want -2.5", out.T)
	}
	p := Vec2{11, 10}.Add(Vec2{2, 0}.Scale(out.T))
	again := r.Resolve(p, Vec2{2, 0})
	if again.Kind != Contact || again.T != 0 {
		t.Fatalf("after push-out = %+v, want contact at 0", again)
	}
	if !r.Overlaps(Vec2{12, 11}) || r.Overlaps(Vec2{20, 20}) {
		t.Fatal("Overlaps disagrees with geometry")
	}
}

func TestResolveInsideToleranceBand(t *testing.T) {
	s := newBare(t, 32, 2, Vec2{10, 10})
	r := s.Resolver()
	eps := s.Config().Epsilon
	// Closer than 2R but not by more than eps: not an overlap, and any step
	// with an inward component must stop before moving.
	p0 := Vec2{10, 14 - 0.95*eps}
	for _, v := range []Vec2{{4, -8}, {0, -1}, {50, -1e-3}, {-3, -0.5}} {
		out := r.Resolve(p0, v)
		if out.Kind != Contact || out.T != 0 || out.Target != 0 {
			t.Fatalf("v=%+v outcome = %+v, want contact at 0", v, out)
		}
	}
	for _, v := range []Vec2{{0, 1}, {4, 0}, {-1, 2}} {
		if out := r.Resolve(p0, v); out.Kind != NoContact {
			t.Fatalf("v=%+v outcome = %+v, want no contact", v, out)
		}
	}
}

func TestResolveTiesPickLowestIndex(t *testing.T) {
	s := newBare(t, 32, 1, Vec2{10, 11})
	if err := s.freeze(Vec2{10, 9}); err != nil {
		t.Fatal(err)
	}
	out := s.Resolver().Resolve(Vec2{0, 10}, Vec2{20, 0})
	if out.Kind != Contact || out.Target != 0 {
		t.Fatalf("outcome = %+v, want contact with 0", out)
	}
}

func TestResolveReachesRingSlots(t *testing.T) {
	s := newBare(t, 32, 1, Vec2{16, 16})
	if err := s.freeze(Vec2{-3, 16}); err != nil {
		t.Fatal(err)
	}
	if got := s.Ring().Active(); got != RingLeft {
		t.Fatalf("active slots = %08b, want left", got)
	}
	if s.Ring().Slot(2) == nil || s.Ring().Slot(0) != nil {
		t.Fatal("only the left slot should exist")
	}
	out := s.Resolver().Resolve(Vec2{-8, 16}, Vec2{4, 0})
	if out.Kind != Contact || out.Target != 1 || math.Abs(out.T-0.75) > 1e-12 {
		t.Fatalf("outcome = %+v, want contact with 1 at 0.75", out)
	}
}

// firstContact scans every stuck disc without the tree.
func firstContact(stuck []Vec2, p0, v Vec2, reach float64) (float64, bool) {
	best, found := math.Inf(1), false
	a := v.Dot(v)
	for _, c := range stuck {
		d := p0.Sub(c)
		b := 2 * d.Dot(v)
		cc := d.Dot(d) - reach*reach
		disc := b*b - 4*a*cc
		if disc < 0 {
			continue
		}
		t := (-b - math.Sqrt(disc)) / (2 * a)
		if t >= 0 && t <= 1 && t < best {
			best, found = t, true
		}
	}
	return best, found
}

func TestResolveNeverTunnels(t *testing.T) {
	const (
		size   = 64.0
		radius = 1.0
	)
	s := newBare(t, size, radius, Vec2{32, 32})
	rng := rand.New(rand.NewPCG(99, 1))
	for i := 0; i < 150; i++ {
		if err := s.freeze(Vec2{rng.Float64() * size, rng.Float64() * size}); err != nil {
			t.Fatal(err)
		}
	}
	// A handful of discs entirely outside the domain only live in the ring.
	for _, p := range []Vec2{{-2, 10}, {66, 40}, {30, -1.5}, {-1.5, -1.5}, {65.5, 65.5}, {12, 66}} {
		if err := s.freeze(p); err != nil {
			t.Fatal(err)
		}
	}
	stuck := s.Stuck().Positions()
	reach := 2 * radius
	cells := s.Tree().Cells()

	isClear := func(p Vec2) bool {
		for _, c := range stuck {
			if p.Sub(c).Len() < reach+1e-6 {
				return false
			}
		}
		return true
	}

	checked := 0
	for checked < 3000 {
		p0 := Vec2{rng.Float64()*(size+6) - 3, rng.Float64()*(size+6) - 3}
		if !isClear(p0) {
			continue
		}
		angle := rng.Float64() * 2 * math.Pi
		length := 0.1 + rng.Float64()*8
		v := Vec2{math.Cos(angle) * length, math.Sin(angle) * length}
		checked++

		out := s.Resolver().Resolve(p0, v)
		want, hit := firstContact(stuck, p0, v, reach)
		switch {
		case out.Kind == Overlap:
			t.Fatalf("walker at %+v reported overlapping", p0)
		case hit && out.Kind != Contact:
			t.Fatalf("p0=%+v v=%+v tunnelled through a disc at t=%v", p0, v, want)
		case !hit && out.Kind != NoContact:
			t.Fatalf("p0=%+v v=%+v phantom contact %+v", p0, v, out)
		case hit:
			if math.Abs(out.T-want) > 1e-9 {
				t.Fatalf("t = %v, want %v", out.T, want)
			}
			at := p0.Add(v.Scale(out.T))
			if d := at.Sub(s.Stuck().At(out.Target)).Len(); math.Abs(d-reach) > 1e-6 {
				t.Fatalf("contact distance %v, want %v", d, reach)
			}
		}
		if again := s.Resolver().Resolve(p0, v); again != out {
			t.Fatalf("repeat query %+v != %+v", again, out)
		}
	}
	if s.Tree().Cells() != cells {
		t.Fatal("queries must not change the tree")
	}
}
