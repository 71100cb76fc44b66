package utils

import "testing"

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if len(a) != 16 {
		t.Errorf("expected 16 hex chars, got %d (%q)", len(a), a)
	}
	if a == b {
		t.Errorf("two generated IDs collided: %s", a)
	}
}

func TestNewRandDeterministic(t *testing.T) {
	r1 := NewRand(42)
	r2 := NewRand(42)
	for i := 0; i < 10; i++ {
		if x, y := r1.Intn(1000), r2.Intn(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestStringToSeed(t *testing.T) {
	if StringToSeed("amoeba") != StringToSeed("amoeba") {
		t.Error("same phrase must give the same seed")
	}
	if StringToSeed("amoeba") == StringToSeed("ameba") {
		t.Error("different phrases should give different seeds")
	}
	if StringToSeed("x") < 0 {
		t.Error("seed must be non-negative")
	}
}
