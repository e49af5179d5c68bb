package engine

import (
	"math"
	"sort"
)

// tieEpsilon is the priority difference below which two candidates count as
// tied and the PRNG breaks the tie.
const tieEpsilon = 1e-6

// candidate carries the per-participant numbers the scorer and selector
// work from during one week's evaluation.
type candidate struct {
	id       string
	daysPool int
	total    int
	rate     float64
	deficit  float64
	priority float64
}

// scoreCandidates fills rate, deficit and priority for every candidate.
// The primary signal is the rate deficit: pool-average selections per
// week-in-pool minus the candidate's own rate. Priority must never be
// multiplied by time-in-pool — comparing cumulative counts instead of rates
// is exactly what hands new joiners an artificial catch-up burden.
//
// Candidates are evaluated in id order and each receives one PRNG draw as a
// sub-epsilon tie-break jitter, so equal-deficit candidates are ordered
// randomly but reproducibly.
func scoreCandidates(cfg Config, penalized bool, cands []*candidate, rng Rand) {
	sort.Slice(cands, func(i, j int) bool { return cands[i].id < cands[j].id })

	avg := 0.0
	for _, c := range cands {
		weeksPool := float64(c.daysPool) / 7.0
		if weeksPool > 0 {
			c.rate = float64(c.total) / weeksPool
		} else {
			c.rate = 0
		}
		avg += c.rate
	}
	if len(cands) > 0 {
		avg /= float64(len(cands))
	}

	for _, c := range cands {
		c.deficit = avg - c.rate
		if penalized {
			c.priority = penalizedPriority(cfg, c.deficit, c.daysPool)
		} else {
			weeksPool := float64(c.daysPool) / 7.0
			c.priority = c.deficit / (weeksPool + 1)
		}
		c.priority += rng.Float64() * tieEpsilon * 0.5
	}
}

// penalizedPriority maps a rate deficit to a selection priority with an L4
// sharpening term: near-zero for small deficits, aggressive for large ones.
// The tenure weight dampens the cubic term for long-standing members so
// their priority stays smooth.
func penalizedPriority(cfg Config, deficit float64, daysPool int) float64 {
	days := float64(daysPool)
	if days < 1 {
		days = 1
	}
	base := deficit / days
	boost := cfg.PenaltyLambda * sign(base) * math.Pow(math.Abs(base), 3)
	tenure := math.Log(days+1) / math.Log(365)
	return base + boost/(tenure+1)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
