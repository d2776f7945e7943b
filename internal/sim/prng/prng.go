// Package prng provides the deterministic pseudo-randomness the world
// generators are seeded with. Every value is a pure function of its seed;
// there is no ambient RNG state anywhere in the engine, which is what makes
// dungeon regeneration byte-identical across processes.
package prng

// mix64 is a splitmix64-style finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// SeedFromString hashes an arbitrary string into a seed (FNV-1a, mixed).
func SeedFromString(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return mix64(h)
}

// Float returns a uniform value in [0,1) derived from the seed. Generators
// draw successive values as Float(seed + loopIndex).
func Float(seed uint64) float64 {
	return float64(mix64(seed)>>11) / (1 << 53)
}

// Intn returns a uniform value in [0,n) derived from the seed.
func Intn(seed uint64, n int) int {
	if n <= 0 {
		return 0
	}
	return int(Float(seed) * float64(n))
}

// Pin returns an n-digit numeric pin. Spawn ids append one to a running
// count; the pin makes concurrent spawns unlikely (not impossible) to
// collide on the same id.
func Pin(seed uint64, n int) string {
	buf := make([]byte, n)
	v := mix64(seed)
	for i := 0; i < n; i++ {
		v = mix64(v)
		buf[i] = byte('0' + v%10)
	}
	return string(buf)
}

// Shuffle returns a seeded Fisher-Yates permutation of [0,n).
func Shuffle(seed uint64, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := Intn(seed+uint64(i), i+1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
