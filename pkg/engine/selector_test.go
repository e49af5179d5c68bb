package engine

import (
	"math"
	"testing"
)

func TestSoftmaxNormalised(t *testing.T) {
	tests := []struct {
		name string
		d    []float64
		temp float64
	}{
		{"plain", []float64{1, 2, 3}, 1.0},
		{"negative values", []float64{-5, -1, -3}, 1.0},
		{"hot", []float64{0.1, 0.2, 0.3, 0.4}, 5.0},
		{"cold", []float64{0.1, 0.2, 0.3, 0.4}, 0.1},
		{"huge spread", []float64{-1000, 0, 1000}, 1.0},
		{"single", []float64{7}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := softmax(tt.d, tt.temp)
			sum := 0.0
			for _, v := range p {
				if v < 0 || v > 1 {
					t.Errorf("probability %v out of [0,1]", v)
				}
				sum += v
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("probabilities sum to %v, want 1", sum)
			}
		})
	}
}

func TestSoftmaxOrderPreserving(t *testing.T) {
	p := softmax([]float64{0.1, 0.5, 0.3}, 1.0)
	if !(p[1] > p[2] && p[2] > p[0]) {
		t.Errorf("softmax must preserve priority order, got %v", p)
	}
}

func TestSoftmaxUniformFallback(t *testing.T) {
	nan := math.NaN()
	p := softmax([]float64{nan, nan, nan}, 1.0)
	for _, v := range p {
		if math.Abs(v-1.0/3.0) > 1e-12 {
			t.Errorf("degenerate input should fall back to uniform, got %v", p)
		}
	}
}

func TestSoftmaxTemperatureEffect(t *testing.T) {
	d := []float64{0, 1}
	cold := softmax(d, 0.1)
	hot := softmax(d, 5.0)
	if cold[1] <= hot[1] {
		t.Errorf("lower temperature should concentrate mass: cold %v hot %v", cold, hot)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	rng := NewMulberry32(5)
	p := []float64{0.1, 0.2, 0.3, 0.4}
	for trial := 0; trial < 200; trial++ {
		picked := sampleWithoutReplacement(p, 3, rng)
		if len(picked) != 3 {
			t.Fatalf("picked %d, want 3", len(picked))
		}
		seen := make(map[int]bool)
		for _, i := range picked {
			if seen[i] {
				t.Fatalf("duplicate pick %d", i)
			}
			seen[i] = true
		}
	}
}

func TestSampleWithoutReplacementBias(t *testing.T) {
	rng := NewMulberry32(23)
	p := []float64{0.05, 0.95}
	heavy := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		picked := sampleWithoutReplacement(p, 1, rng)
		if picked[0] == 1 {
			heavy++
		}
	}
	if float64(heavy)/trials < 0.9 {
		t.Errorf("index 1 holds 95%% of the mass but won only %d/%d", heavy, trials)
	}
}

func TestGumbelMaxSample(t *testing.T) {
	rng := NewMulberry32(29)
	p := []float64{0.25, 0.25, 0.25, 0.25}
	picked := gumbelMaxSample(p, 2, rng)
	if len(picked) != 2 || picked[0] == picked[1] {
		t.Errorf("expected 2 distinct picks, got %v", picked)
	}

	// Heavily skewed weights: the dominant index should win most draws.
	skew := []float64{0.01, 0.99}
	wins := 0
	for i := 0; i < 1000; i++ {
		if gumbelMaxSample(skew, 1, rng)[0] == 1 {
			wins++
		}
	}
	if wins < 900 {
		t.Errorf("dominant index won only %d/1000", wins)
	}
}

func TestAdaptiveTemperature(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name        string
		variance    float64
		convergence float64
		entropy     float64
		check       func(got float64) bool
	}{
		{"calm pool stays near 1", 0, 0, 1, func(g float64) bool { return math.Abs(g-1) < 1e-9 }},
		{"high variance cools", 1.0, 0, 1, func(g float64) bool { return g < 0.2 }},
		{"diverging heats", 0, -0.5, 1, func(g float64) bool { return g > 1 }},
		{"collapsed entropy heats", 0, 0, 0.1, func(g float64) bool { return g >= 4.9 }},
		{"clamped low", 10, 0, 1, func(g float64) bool { return g >= cfg.TemperatureMin }},
		{"clamped high", 0, -1, 0.01, func(g float64) bool { return g <= cfg.TemperatureMax }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adaptiveTemperature(cfg, tt.variance, tt.convergence, tt.entropy)
			if !tt.check(got) {
				t.Errorf("temperature = %v", got)
			}
		})
	}
}

func TestDiversityPenalty(t *testing.T) {
	cfg := DefaultConfig()
	cands := []*candidate{
		{id: "a", priority: 1.0},
		{id: "b", priority: 1.0},
	}
	recent := [][]string{
		{"a"}, // last week, weight 1
		{"a"}, // two weeks ago, weight 1 - 1/5
	}
	applyDiversityPenalty(cfg, cands, recent)

	wantA := 1.0 - cfg.DiversityWeight*(1.0+0.8)
	if math.Abs(cands[0].priority-wantA) > 1e-12 {
		t.Errorf("a priority = %v, want %v", cands[0].priority, wantA)
	}
	if cands[1].priority != 1.0 {
		t.Errorf("b priority = %v, want unchanged 1.0", cands[1].priority)
	}
}

func TestEntropyDiagnostics(t *testing.T) {
	uniform := []float64{0.25, 0.25, 0.25, 0.25}
	if got := normalizedEntropy(uniform); math.Abs(got-1) > 1e-9 {
		t.Errorf("uniform normalized entropy = %v, want 1", got)
	}

	point := []float64{1, 0, 0, 0}
	if got := normalizedEntropy(point); got != 0 {
		t.Errorf("point-mass normalized entropy = %v, want 0", got)
	}

	if got := entropy(uniform); math.Abs(got-math.Log(4)) > 1e-9 {
		t.Errorf("entropy = %v, want ln 4", got)
	}
}
