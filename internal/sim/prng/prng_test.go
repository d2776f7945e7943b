package prng

import "testing"

func TestSeedFromString_Deterministic(t *testing.T) {
	if SeedFromString("w2d1") != SeedFromString("w2d1") {
		t.Fatal("same string produced different seeds")
	}
	if SeedFromString("w2d1") == SeedFromString("w2d2") {
		t.Fatal("different strings produced the same seed")
	}
}

func TestFloatRange(t *testing.T) {
	seed := SeedFromString("territory")
	for i := uint64(0); i < 1000; i++ {
		v := Float(seed + i)
		if v < 0 || v >= 1 {
			t.Fatalf("Float out of range: %f", v)
		}
	}
	if Float(seed) != Float(seed) {
		t.Fatal("Float not deterministic")
	}
}

func TestIntn(t *testing.T) {
	seed := SeedFromString("x")
	for i := uint64(0); i < 100; i++ {
		v := Intn(seed+i, 7)
		if v < 0 || v >= 7 {
			t.Fatalf("Intn out of range: %d", v)
		}
	}
	if Intn(seed, 0) != 0 {
		t.Fatal("Intn(0) should be 0")
	}
}

func TestPin(t *testing.T) {
	p := Pin(42, 4)
	if len(p) != 4 {
		t.Fatalf("pin length = %d", len(p))
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			t.Fatalf("pin has non-digit: %s", p)
		}
	}
	if Pin(42, 4) != p {
		t.Fatal("pin not deterministic")
	}
	if Pin(43, 4) == p {
		t.Fatal("adjacent seeds produced identical pins")
	}
}

func TestShuffle(t *testing.T) {
	p := Shuffle(7, 32)
	if len(p) != 32 {
		t.Fatalf("permutation length = %d", len(p))
	}
	seen := map[int]struct{}{}
	for _, v := range p {
		if v < 0 || v >= 32 {
			t.Fatalf("value out of range: %d", v)
		}
		seen[v] = struct{}{}
	}
	if len(seen) != 32 {
		t.Fatal("not a permutation")
	}
	q := Shuffle(7, 32)
	for i := range p {
		if p[i] != q[i] {
			t.Fatal("shuffle not deterministic")
		}
	}
}
