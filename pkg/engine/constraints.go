package engine

import (
	"math"
	"sort"
	"time"
)

// varianceHistorySize bounds the convergence trend buffer.
const varianceHistorySize = 30

// rateObservation is one participant's numbers as seen by the monitor.
type rateObservation struct {
	id       string
	rate     float64
	deficit  float64
	daysPool int
}

// ConstraintMonitor checks the rate distribution against the fairness
// bounds and keeps a bounded history of variance snapshots for convergence
// trending.
type ConstraintMonitor struct {
	cfg             Config
	varianceHistory []float64
}

// NewConstraintMonitor creates a monitor with an empty history.
func NewConstraintMonitor(cfg Config) *ConstraintMonitor {
	return &ConstraintMonitor{cfg: cfg}
}

// distributionStats is the summary the monitor computes in one pass.
type distributionStats struct {
	mean       float64
	variance   float64
	stdDev     float64
	cv         float64
	gini       float64
	theil      float64
	maxDeficit float64
	minDeficit float64
}

// Check evaluates the active pool's rates, records the variance snapshot,
// and returns violations (sorted by severity, descending) together with the
// corrective actions they imply.
func (m *ConstraintMonitor) Check(obs []rateObservation, at time.Time) (distributionStats, []Violation, []CorrectiveAction) {
	stats, violations, actions := evaluateConstraints(m.cfg, obs, at)
	m.pushVariance(stats.variance)
	return stats, violations, actions
}

// evaluateConstraints is the stateless constraint check: it computes the
// distribution statistics, the bound violations, and the corrective actions
// without touching any history.
func evaluateConstraints(cfg Config, obs []rateObservation, at time.Time) (distributionStats, []Violation, []CorrectiveAction) {
	stats := computeStats(obs)

	var violations []Violation
	for _, o := range obs {
		bound := cfg.DeficitBoundBeta * math.Sqrt(float64(o.daysPool))
		if bound <= 0 {
			continue
		}
		if math.Abs(o.deficit) > bound {
			violations = append(violations, Violation{
				Kind:          ViolationCumulativeDeficit,
				ParticipantID: o.id,
				Value:         o.deficit,
				Bound:         bound,
				Severity:      math.Abs(o.deficit) / bound,
				At:            at,
			})
		}
	}
	if stats.variance > cfg.MaxRateVariance {
		violations = append(violations, Violation{
			Kind:     ViolationVariance,
			Value:    stats.variance,
			Bound:    cfg.MaxRateVariance,
			Severity: stats.variance / cfg.MaxRateVariance,
			At:       at,
		})
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Severity > violations[j].Severity
	})

	var actions []CorrectiveAction
	for _, v := range violations {
		if v.Kind != ViolationCumulativeDeficit {
			continue
		}
		kind := ActionBoost
		if v.Value < 0 {
			kind = ActionPenalty
		}
		actions = append(actions, CorrectiveAction{
			Kind:          kind,
			ParticipantID: v.ParticipantID,
			Magnitude:     v.Severity,
			DurationWeeks: int(math.Ceil(4 * v.Severity)),
		})
	}

	return stats, violations, actions
}

// pushVariance appends a snapshot, discarding the oldest past the cap.
func (m *ConstraintMonitor) pushVariance(v float64) {
	m.varianceHistory = append(m.varianceHistory, v)
	if len(m.varianceHistory) > varianceHistorySize {
		m.varianceHistory = m.varianceHistory[len(m.varianceHistory)-varianceHistorySize:]
	}
}

// IsConverging reports whether the mean variance of the last window
// snapshots is strictly below the mean of the window before it.
func (m *ConstraintMonitor) IsConverging(window int) bool {
	if window <= 0 || len(m.varianceHistory) < 2*window {
		return false
	}
	n := len(m.varianceHistory)
	recent := mean(m.varianceHistory[n-window:])
	prior := mean(m.varianceHistory[n-2*window : n-window])
	return recent < prior
}

// ConvergenceRate returns the relative change between the two most recent
// variance window means: negative when variance is shrinking. Zero until
// enough history exists.
func (m *ConstraintMonitor) ConvergenceRate(window int) float64 {
	if window <= 0 || len(m.varianceHistory) < 2*window {
		return 0
	}
	n := len(m.varianceHistory)
	recent := mean(m.varianceHistory[n-window:])
	prior := mean(m.varianceHistory[n-2*window : n-window])
	if prior == 0 {
		return 0
	}
	return (recent - prior) / prior
}

func computeStats(obs []rateObservation) distributionStats {
	var s distributionStats
	if len(obs) == 0 {
		return s
	}

	rates := make([]float64, len(obs))
	for i, o := range obs {
		rates[i] = o.rate
	}
	s.mean = mean(rates)

	for _, r := range rates {
		d := r - s.mean
		s.variance += d * d
	}
	s.variance /= float64(len(rates))
	s.stdDev = math.Sqrt(s.variance)
	if s.mean > 0 {
		s.cv = s.stdDev / s.mean
	}

	s.gini = gini(rates)
	s.theil = theil(rates)

	s.maxDeficit = math.Inf(-1)
	s.minDeficit = math.Inf(1)
	for _, o := range obs {
		if o.deficit > s.maxDeficit {
			s.maxDeficit = o.deficit
		}
		if o.deficit < s.minDeficit {
			s.minDeficit = o.deficit
		}
	}
	return s
}

// gini returns the Gini coefficient of xs, in [0, 1]. Zero when all values
// are equal or the mean is zero.
func gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	mu := mean(xs)
	if mu == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += math.Abs(xs[i] - xs[j])
		}
	}
	return sum / (2 * float64(n) * float64(n) * mu)
}

// theil returns the Theil index of xs over its positive entries, in
// [0, ln n]. Zero when all values are equal or the mean is zero.
func theil(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	mu := mean(xs)
	if mu == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		if x <= 0 {
			continue
		}
		ratio := x / mu
		sum += ratio * math.Log(ratio)
	}
	return sum / float64(n)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
