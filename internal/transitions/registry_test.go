package transitions

import (
	"math/rand/v2"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if r.Len() != 17 {
		t.Errorf("expected 17 transitions, got %d", r.Len())
	}
	for _, k := range All {
		if !r.Has(k) {
			t.Errorf("default registry missing %s", k)
		}
	}
}

func TestFromNames(t *testing.T) {
	r, err := FromNames([]string{"Fade", "dissolve", "fade"})
	if err != nil {
		t.Fatalf("FromNames failed: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("expected duplicates to collapse, got %v", r.List())
	}

	if _, err := FromNames([]string{"spin"}); err == nil {
		t.Error("expected error for unknown transition")
	}

	empty, err := FromNames(nil)
	if err != nil || empty.Len() != len(All) {
		t.Errorf("empty names should yield default registry, got %v, %v", empty, err)
	}
}

func TestPickCoversPool(t *testing.T) {
	r := NewRegistry(WipeLeft, WipeRight, SlideUp)
	rng := rand.New(rand.NewPCG(1, 2))

	seen := make(map[Kind]int)
	for i := 0; i < 3000; i++ {
		k := r.Pick(rng)
		if !r.Has(k) {
			t.Fatalf("picked %s outside the pool", k)
		}
		seen[k]++
	}

	for _, k := range r.List() {
		// Expect ~1000 each; a broken picker would skew far beyond this
		if seen[k] < 800 || seen[k] > 1200 {
			t.Errorf("transition %s picked %d times out of 3000", k, seen[k])
		}
	}
}

func TestPickDeterministicWithSeed(t *testing.T) {
	r := Default()
	a := rand.New(rand.NewPCG(42, 42))
	b := rand.New(rand.NewPCG(42, 42))
	for i := 0; i < 20; i++ {
		if r.Pick(a) != r.Pick(b) {
			t.Fatal("same seed produced different transitions")
		}
	}
}
