package engine

import (
	"math"
	"testing"
)

func TestMulberry32Deterministic(t *testing.T) {
	a := NewMulberry32(42)
	b := NewMulberry32(42)
	for i := 0; i < 1000; i++ {
		if av, bv := a.Float64(), b.Float64(); av != bv {
			t.Fatalf("draw %d diverged: %v != %v", i, av, bv)
		}
	}
}

func TestMulberry32Range(t *testing.T) {
	rng := NewMulberry32(7)
	for i := 0; i < 10000; i++ {
		v := rng.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
}

func TestMulberry32ChiSquared(t *testing.T) {
	// Uniformity: 10 bins, 5000 samples, chi-squared must stay under 25
	// for several distinct seeds.
	seeds := []uint32{1, 42, 12345, 987654321}
	for _, seed := range seeds {
		rng := NewMulberry32(seed)
		const bins = 10
		const samples = 5000
		counts := make([]int, bins)
		for i := 0; i < samples; i++ {
			b := int(rng.Float64() * bins)
			if b == bins {
				b = bins - 1
			}
			counts[b]++
		}
		expected := float64(samples) / bins
		chi2 := 0.0
		for _, c := range counts {
			d := float64(c) - expected
			chi2 += d * d / expected
		}
		if chi2 >= 25 {
			t.Errorf("seed %d: chi-squared %.2f >= 25", seed, chi2)
		}
	}
}

func TestMulberry32StateRoundTrip(t *testing.T) {
	rng := NewMulberry32(99)
	for i := 0; i < 17; i++ {
		rng.Float64()
	}
	saved := rng.State()
	want := []float64{rng.Float64(), rng.Float64(), rng.Float64()}

	rng.SetState(saved)
	for i, w := range want {
		if got := rng.Float64(); got != w {
			t.Fatalf("replayed draw %d = %v, want %v", i, got, w)
		}
	}
}

func TestIntInRange(t *testing.T) {
	rng := NewMulberry32(3)
	for i := 0; i < 1000; i++ {
		v := rng.IntInRange(2, 9)
		if v < 2 || v >= 9 {
			t.Fatalf("value %d out of [2,9)", v)
		}
	}
	if v := rng.IntInRange(5, 5); v != 5 {
		t.Errorf("empty range should return lo, got %d", v)
	}
}

func TestGaussianMoments(t *testing.T) {
	rng := NewMulberry32(11)
	const n = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := rng.Gaussian(5, 2)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean-5) > 0.1 {
		t.Errorf("mean %.3f too far from 5", mean)
	}
	if math.Abs(variance-4) > 0.3 {
		t.Errorf("variance %.3f too far from 4", variance)
	}
}

func TestGumbelFinite(t *testing.T) {
	rng := NewMulberry32(13)
	for i := 0; i < 10000; i++ {
		g := rng.Gumbel()
		if math.IsNaN(g) || math.IsInf(g, 0) {
			t.Fatalf("draw %d not finite: %v", i, g)
		}
	}
}

func TestShufflePermutes(t *testing.T) {
	rng := NewMulberry32(17)
	xs := []int{0, 1, 2, 3, 4, 5, 6, 7}
	rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })

	seen := make(map[int]bool)
	for _, x := range xs {
		seen[x] = true
	}
	if len(seen) != 8 {
		t.Errorf("shuffle lost elements: %v", xs)
	}
}

func TestSampleKDistinct(t *testing.T) {
	rng := NewMulberry32(19)
	for trial := 0; trial < 100; trial++ {
		got := rng.SampleK(10, 4)
		if len(got) != 4 {
			t.Fatalf("expected 4 indices, got %d", len(got))
		}
		seen := make(map[int]bool)
		for _, i := range got {
			if i < 0 || i >= 10 {
				t.Fatalf("index %d out of range", i)
			}
			if seen[i] {
				t.Fatalf("duplicate index %d", i)
			}
			seen[i] = true
		}
	}
	if got := rng.SampleK(3, 10); len(got) != 3 {
		t.Errorf("k > n should return n indices, got %d", len(got))
	}
}
