package engine

import "math"

// Rand is the randomness capability the selector and tracker depend on.
// Implementations must be seedable and state-snapshottable so generation
// stays reproducible.
type Rand interface {
	// Float64 returns a uniform draw in [0, 1).
	Float64() float64
	// Gaussian returns a normally distributed draw.
	Gaussian(mu, sigma float64) float64
}

// Mulberry32 is a single-state 32-bit PRNG. It is fast, has a full 2^32
// period, and its entire state fits in one integer, which makes snapshots
// and replays trivial.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 creates a generator seeded with the given value.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// State returns the current generator state.
func (m *Mulberry32) State() uint32 {
	return m.state
}

// SetState restores a previously captured state.
func (m *Mulberry32) SetState(s uint32) {
	m.state = s
}

// Float64 returns a uniform draw in [0, 1).
func (m *Mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	t ^= t >> 14
	return float64(t) / 4294967296.0
}

// IntInRange returns a uniform integer in [lo, hi).
func (m *Mulberry32) IntInRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(m.Float64()*float64(hi-lo))
}

// Gaussian returns a normally distributed draw via Box-Muller.
func (m *Mulberry32) Gaussian(mu, sigma float64) float64 {
	u1 := m.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	u2 := m.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mu + sigma*z
}

// Gumbel returns a draw from the standard Gumbel(0, 1) distribution.
func (m *Mulberry32) Gumbel() float64 {
	u := m.Float64()
	if u < 1e-20 {
		u = 1e-20
	}
	if u > 1-1e-20 {
		u = 1 - 1e-20
	}
	return -math.Log(-math.Log(u))
}

// Shuffle performs a Fisher-Yates shuffle over n elements using the
// provided swap function.
func (m *Mulberry32) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := m.IntInRange(0, i+1)
		swap(i, j)
	}
}

// SampleK returns k distinct indices drawn uniformly from [0, n). If k >= n
// all indices are returned (shuffled).
func (m *Mulberry32) SampleK(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	m.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	if k > n {
		k = n
	}
	return idx[:k]
}
