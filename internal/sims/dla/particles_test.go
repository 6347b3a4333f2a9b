package dla

import (
	"math"
	"slices"
	"testing"
)

func TestStuckSetTracksEnclosingRadius(t *testing.T) {
	s := newStuckSet(4, Vec2{10, 10})
	if i := s.Add(Vec2{10, 10}); i != 0 {
		t.Fatalf("seed index = %d", i)
	}
	s.Add(Vec2{13, 14})
	s.Add(Vec2{11, 10})
	if s.Len() != 3 || s.At(1) != (Vec2{13, 14}) {
		t.Fatalf("unexpected contents %v", s.Positions())
	}
	if s.EnclosingRadius() != 5 {
		t.Fatalf("enclosing radius = %v, want 5", s.EnclosingRadius())
	}
}

func TestCompactKeepsOrder(t *testing.T) {
	w := newWalkingSet(5)
	for i := 0; i < 5; i++ {
		w.add(Vec2{float64(i), 0}, Vec2{0, float64(i)})
	}
	w.freeze(1)
	w.freeze(3)
	w.freeze(3)
	if w.Live() != 3 || w.Slots() != 5 {
		t.Fatalf("live=%d slots=%d", w.Live(), w.Slots())
	}
	if !w.Frozen(1) || w.Frozen(2) {
		t.Fatal("tombstones misplaced")
	}
	if dropped := w.Compact(); dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
	want := []Vec2{{0, 0}, {2, 0}, {4, 0}}
	if got := w.Positions(); !slices.Equal(got, want) {
		t.Fatalf("positions = %v, want %v", got, want)
	}
	if w.step[1] != (Vec2{0, 2}) || w.step[2] != (Vec2{0, 4}) {
		t.Fatalf("steps did not follow their walkers: %v", w.step)
	}
}

func TestClipBouncesOffBorder(t *testing.T) {
	w := newWalkingSet(4)
	w.add(Vec2{-1, 5}, Vec2{-2, 1})
	w.add(Vec2{3, 12}, Vec2{0.5, 3})
	w.add(Vec2{9, 5}, Vec2{1, 1})
	w.add(Vec2{4, 6}, Vec2{1, -1})
	for i := 0; i < 4; i++ {
		w.clip(i, 1, 9)
	}
	if w.pos[0] != (Vec2{1, 5}) || w.step[0] != (Vec2{2, 1}) {
		t.Fatalf("walker 0 = %+v step %+v", w.pos[0], w.step[0])
	}
	if w.pos[1] != (Vec2{3, 9}) || w.step[1] != (Vec2{0.5, -3}) {
		t.Fatalf("walker 1 = %+v step %+v", w.pos[1], w.step[1])
	}
	// Landing exactly on the border counts as leaving the interior.
	if w.pos[2] != (Vec2{9, 5}) || w.step[2] != (Vec2{-1, 1}) {
		t.Fatalf("walker 2 = %+v step %+v", w.pos[2], w.step[2])
	}
	if w.pos[3] != (Vec2{4, 6}) || w.step[3] != (Vec2{1, -1}) {
		t.Fatalf("walker 3 = %+v step %+v", w.pos[3], w.step[3])
	}
}

func TestTombstoneIsNaN(t *testing.T) {
	if !tombstone.IsNaN() || (Vec2{1, math.Inf(1)}).IsNaN() {
		t.Fatal("IsNaN misreports")
	}
}
