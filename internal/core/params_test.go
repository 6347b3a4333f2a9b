package core

import "testing"

func TestParameterSnapshotLookup(t *testing.T) {
	snap := ParameterSnapshot{Groups: []ParameterGroup{
		{Name: "A", Params: []Parameter{IntParam("n", "N", 3)}},
		{Name: "B", Params: []Parameter{FloatParam("f", "F", 0.25), BoolParam("b", "B", true)}},
	}}

	p, ok := snap.Lookup("f")
	if !ok || p.Value != "0.25" || p.Type != ParamTypeFloat {
		t.Fatalf("lookup f = %+v, %v", p, ok)
	}
	if p, ok := snap.Lookup("b"); !ok || p.Value != "true" {
		t.Fatalf("lookup b = %+v, %v", p, ok)
	}
	if _, ok := snap.Lookup("missing"); ok {
		t.Fatal("lookup of unknown key succeeded")
	}
}
