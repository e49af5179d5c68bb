package engine

import "math"

// softmax converts a priority vector into a probability vector using a
// temperature-scaled, log-sum-exp-stabilised softmax. A degenerate sum
// falls back to the uniform distribution.
func softmax(d []float64, temperature float64) []float64 {
	n := len(d)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}
	if temperature < 0.01 {
		temperature = 0.01
	}

	maxVal := math.Inf(-1)
	scaled := make([]float64, n)
	for i, v := range d {
		scaled[i] = v / temperature
		if scaled[i] > maxVal {
			maxVal = scaled[i]
		}
	}

	probs := make([]float64, n)
	sum := 0.0
	for i, v := range scaled {
		probs[i] = math.Exp(v - maxVal)
		sum += probs[i]
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range probs {
			probs[i] = 1 / float64(n)
		}
		return probs
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// sampleWithoutReplacement draws k distinct indices from the probability
// vector p, renormalising after each pick. One uniform draw is consumed per
// pick.
func sampleWithoutReplacement(p []float64, k int, rng Rand) []int {
	n := len(p)
	if k > n {
		k = n
	}
	remaining := make([]float64, n)
	copy(remaining, p)

	picked := make([]int, 0, k)
	for len(picked) < k {
		total := 0.0
		for _, w := range remaining {
			total += w
		}
		if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
			// Degenerate weights: fall back to uniform over the rest.
			for i := range remaining {
				if remaining[i] >= 0 && !contains(picked, i) {
					remaining[i] = 1
				}
			}
			total = 0
			for _, w := range remaining {
				total += w
			}
			if total == 0 {
				break
			}
		}

		u := rng.Float64() * total
		acc := 0.0
		choice := -1
		for i, w := range remaining {
			if w <= 0 {
				continue
			}
			acc += w
			if u < acc {
				choice = i
				break
			}
		}
		if choice < 0 {
			// Numeric edge: take the last positive-weight index.
			for i := n - 1; i >= 0; i-- {
				if remaining[i] > 0 {
					choice = i
					break
				}
			}
			if choice < 0 {
				break
			}
		}
		picked = append(picked, choice)
		remaining[choice] = 0
	}
	return picked
}

// gumbelMaxSample draws k distinct indices via the Gumbel-Max trick,
// applied iteratively with removal. Mathematically equivalent to
// sampleWithoutReplacement for each single draw.
func gumbelMaxSample(p []float64, k int, rng *Mulberry32) []int {
	n := len(p)
	if k > n {
		k = n
	}
	taken := make([]bool, n)
	picked := make([]int, 0, k)
	for len(picked) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i, w := range p {
			if taken[i] || w <= 0 {
				continue
			}
			score := math.Log(w) + rng.Gumbel()
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		picked = append(picked, best)
	}
	return picked
}

// adaptiveTemperature derives a softmax temperature from the current rate
// variance, the convergence rate, and the entropy of the last selection.
// High variance cools the distribution toward exploitation; a diverging
// pool or a collapsed selection entropy heats it back up.
func adaptiveTemperature(cfg Config, variance, convergence, lastEntropy float64) float64 {
	v := variance
	if v < 0 {
		v = 0
	}
	tVar := 1 / (1 + 10*v)

	tConv := 1.0
	if convergence < 0 {
		tConv = 1.2
	}

	tEnt := 1.0
	if lastEntropy < 0.5 {
		h := lastEntropy
		if h < 0.1 {
			h = 0.1
		}
		tEnt = 0.5 / h
	}

	t := tVar * tConv * tEnt
	if t < cfg.TemperatureMin {
		t = cfg.TemperatureMin
	}
	if t > cfg.TemperatureMax {
		t = cfg.TemperatureMax
	}
	return t
}

// applyDiversityPenalty decrements priorities of recently selected
// participants. recent holds the last selection sets, most recent first.
func applyDiversityPenalty(cfg Config, cands []*candidate, recent [][]string) {
	if cfg.DiversityWeight == 0 || len(recent) == 0 {
		return
	}
	window := cfg.DiversityWindow
	if len(recent) > window {
		recent = recent[:window]
	}
	for _, c := range cands {
		penalty := 0.0
		for w, set := range recent {
			if containsID(set, c.id) {
				penalty += 1 - float64(w)/float64(window)
			}
		}
		c.priority -= cfg.DiversityWeight * penalty
	}
}

// entropy returns the Shannon entropy of a probability vector in nats.
func entropy(p []float64) float64 {
	h := 0.0
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

// normalizedEntropy scales entropy into [0, 1] by the maximum ln n.
func normalizedEntropy(p []float64) float64 {
	n := len(p)
	if n <= 1 {
		return 0
	}
	return entropy(p) / math.Log(float64(n))
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsID(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
