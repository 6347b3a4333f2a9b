package ui

import (
	"image"
	"testing"

	"dla-grow/internal/core"
)

func testSnapshot() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{Name: "Walk", Params: []core.Parameter{
			core.FloatParam("momentum", "Momentum", 0.95),
			core.IntParam("walkers", "Walkers", 4),
		}},
		{Name: "Aggregate", Params: []core.Parameter{
			core.FloatParam("dimension", "Dimension", 1.7123456),
			core.IntParam("stuck", "Stuck", 12),
		}},
	}}
}

func TestStepperClampsToBounds(t *testing.T) {
	st := layoutSteppers([]core.ParameterControl{
		{Key: "momentum", Type: core.ParamTypeFloat, Step: 0.1, Min: 0, Max: 1, HasMin: true, HasMax: true},
		{Key: "walkers", Type: core.ParamTypeInt, Step: 0.2, Min: 3, HasMin: true},
	}, 200)
	snap := testSnapshot()
	for i := range st {
		st[i].sync(snap)
	}

	if v, ok := st[0].next(1); !ok || v != 1 {
		t.Fatalf("momentum up = %v, %v; want clamped to 1", v, ok)
	}
	st[0].value = 1
	if _, ok := st[0].next(1); ok {
		t.Fatal("stepping past the maximum should be refused")
	}
	if got := st[0].text(); got != "1.0" {
		t.Fatalf("text = %q", got)
	}

	// Int steps round up to whole units.
	if v, ok := st[1].next(-1); !ok || v != 3 {
		t.Fatalf("walkers down = %v, %v", v, ok)
	}
	st[1].value = 3
	if _, ok := st[1].next(-1); ok {
		t.Fatal("stepping below the minimum should be refused")
	}
	if got := st[1].text(); got != "3" {
		t.Fatalf("text = %q", got)
	}
}

func TestStepperUnknownValue(t *testing.T) {
	st := layoutSteppers([]core.ParameterControl{{Key: "missing", Type: core.ParamTypeFloat}}, 200)
	st[0].sync(testSnapshot())
	if st[0].known || st[0].text() != "--" {
		t.Fatalf("stepper = %+v", st[0])
	}
	if _, ok := st[0].next(1); ok {
		t.Fatal("unknown values cannot be stepped")
	}
	// A type mismatch is treated as missing.
	st = layoutSteppers([]core.ParameterControl{{Key: "walkers", Type: core.ParamTypeFloat}}, 200)
	st[0].sync(testSnapshot())
	if st[0].known {
		t.Fatal("int parameter accepted by a float control")
	}
}

func TestStepperLayoutAndHit(t *testing.T) {
	st := layoutSteppers([]core.ParameterControl{{Key: "a"}, {Key: "b"}}, 200)
	if st[0].plus.Max.X != 200-panelPadding || st[1].top-st[0].top != stepperHeight {
		t.Fatalf("layout = %+v", st)
	}
	if st[0].minus.Max.X+buttonGap != st[0].plus.Min.X {
		t.Fatalf("buttons overlap: %v %v", st[0].minus, st[0].plus)
	}
	centre := func(r image.Rectangle) image.Point { return r.Min.Add(r.Size().Div(2)) }
	if i, dir := hit(st, centre(st[1].minus)); i != 1 || dir != -1 {
		t.Fatalf("hit minus = %d,%d", i, dir)
	}
	if i, dir := hit(st, centre(st[0].plus)); i != 0 || dir != 1 {
		t.Fatalf("hit plus = %d,%d", i, dir)
	}
	if i, _ := hit(st, image.Pt(0, 0)); i != -1 {
		t.Fatal("title area should not hit a button")
	}
}

func TestReadoutsSkipControls(t *testing.T) {
	lines := readouts(testSnapshot(), map[string]bool{"momentum": true})
	want := []readout{
		{heading: true, label: "Walk"},
		{label: "Walkers", value: "4"},
		{heading: true, label: "Aggregate"},
		{label: "Dimension", value: "1.7123"},
		{label: "Stuck", value: "12"},
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %+v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}
