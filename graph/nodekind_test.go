package graph

import "testing"

func TestNodeKindStartAndEnd(t *testing.T) {
	if !Start.IsStart() || Start.IsEnd() {
		t.Error("Start must report IsStart=true, IsEnd=false")
	}
	if !End.IsEnd() || End.IsStart() {
		t.Error("End must report IsEnd=true, IsStart=false")
	}
	if !Start.IsVirtual() || !End.IsVirtual() {
		t.Error("Start and End must both be virtual")
	}
	if Start.Name() != "Start" || End.Name() != "End" {
		t.Errorf("unexpected names: %q, %q", Start.Name(), End.Name())
	}
}

func TestNodeKindCustom(t *testing.T) {
	k := Custom("greet")
	if k.IsVirtual() {
		t.Error("custom node must not be virtual")
	}
	if k.Name() != "greet" {
		t.Errorf("expected name greet, got %q", k.Name())
	}
	if k.String() != "greet" {
		t.Errorf("expected String() to match Name(), got %q", k.String())
	}
}

func TestNodeKindEqual(t *testing.T) {
	a := Custom("x")
	b := Custom("x")
	c := Custom("y")
	if !a.Equal(b) {
		t.Error("expected equal custom kinds with the same name to be equal")
	}
	if a.Equal(c) {
		t.Error("expected different names to be unequal")
	}
	if Start.Equal(End) {
		t.Error("Start and End must not be equal")
	}
	if Start.Equal(Custom("Start")) {
		t.Error("a custom node named \"Start\" must not equal the virtual Start endpoint")
	}
}
