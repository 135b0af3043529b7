package bus

import "math/rand"

// RNG is the session-scoped deterministic random source. All fault
// injection, latency jitter and twin sampling draws go through one RNG so a
// seed fully determines a session.
type RNG struct {
	r *rand.Rand
}

// NewRNG constructs an RNG from the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a draw in [0, 1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// IntN returns a draw in [0, n). n must be positive.
func (g *RNG) IntN(n int) int { return g.r.Intn(n) }

// Between returns a draw in [lo, hi]. When hi <= lo it returns lo.
func (g *RNG) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Intn(hi-lo+1)
}

// Jitter returns base perturbed by up to ±jitter, floored at zero.
func (g *RNG) Jitter(base, jitter int64) int64 {
	if jitter <= 0 {
		return max(0, base)
	}
	d := base + int64(g.r.Intn(int(2*jitter+1))) - jitter
	return max(0, d)
}

// Choice returns a deterministic pick from the given values. Empty input
// returns the zero value.
func Choice[T any](g *RNG, values []T) T {
	var zero T
	if len(values) == 0 {
		return zero
	}
	return values[g.IntN(len(values))]
}

// Sample returns k distinct values in draw order. When k exceeds the input
// length the whole input is returned shuffled.
func Sample[T any](g *RNG, values []T, k int) []T {
	n := len(values)
	if k > n {
		k = n
	}
	idx := g.r.Perm(n)
	out := make([]T, 0, k)
	for _, i := range idx[:k] {
		out = append(out, values[i])
	}
	return out
}
