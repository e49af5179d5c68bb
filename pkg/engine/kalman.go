package engine

import (
	"math"
	"time"
)

// minVariance is the floor applied to all tracked variances.
const minVariance = 1e-9

// BayesianState is the per-participant posterior of the latent selection
// rate, maintained by a scalar Kalman filter.
type BayesianState struct {
	PriorMean         float64
	PriorVariance     float64
	ObservedRate      float64
	PosteriorMean     float64
	PosteriorVariance float64
	LastUpdate        time.Time
}

// RateTracker holds one BayesianState per participant. States live for the
// lifetime of the engine; they are created on first sight and never
// destroyed.
type RateTracker struct {
	cfg    Config
	states map[string]*BayesianState
}

// NewRateTracker creates an empty tracker.
func NewRateTracker(cfg Config) *RateTracker {
	return &RateTracker{cfg: cfg, states: make(map[string]*BayesianState)}
}

// Has reports whether a state exists for id.
func (t *RateTracker) Has(id string) bool {
	_, ok := t.states[id]
	return ok
}

// State returns the tracked state for id, or nil.
func (t *RateTracker) State(id string) *BayesianState {
	return t.states[id]
}

// Initialize seeds a state at the given rate with the standard initial
// variance. Used for participants present from the start or seeded at their
// empirical rate.
func (t *RateTracker) Initialize(id string, rate float64, at time.Time) {
	t.seed(id, rate, t.cfg.InitialVariance, at)
}

// InitializeJoiner seeds a state for a participant entering an established
// pool. The rate must be the current pool average so the joiner starts at
// equilibrium, and the variance is doubled to reflect the lack of
// observations.
func (t *RateTracker) InitializeJoiner(id string, poolAverageRate float64, at time.Time) {
	t.seed(id, poolAverageRate, t.cfg.JoinerVariance, at)
}

func (t *RateTracker) seed(id string, rate, variance float64, at time.Time) {
	if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}
	t.states[id] = &BayesianState{
		PriorMean:         rate,
		PriorVariance:     variance,
		PosteriorMean:     rate,
		PosteriorVariance: variance,
		LastUpdate:        dateOnly(at),
	}
}

// Update advances the filter for one observation window: predict with
// process noise, observe the realised rate for the elapsed days, apply the
// Kalman gain, then drift-correct toward the ideal rate. A non-finite
// outcome leaves the previous state untouched.
func (t *RateTracker) Update(id string, assigned bool, daysElapsed int, idealRate float64, at time.Time) {
	s, ok := t.states[id]
	if !ok {
		return
	}

	// Predict.
	priorVar := s.PosteriorVariance + t.cfg.ProcessNoise*float64(daysElapsed)/7.0
	priorMean := s.PosteriorMean

	// Observe.
	y := 0.0
	if assigned && daysElapsed > 0 {
		y = 1.0 / float64(daysElapsed)
	}

	// Update.
	gain := priorVar / (priorVar + t.cfg.ObservationNoise)
	postMean := priorMean + gain*(y-priorMean)
	postVar := (1 - gain) * priorVar

	// Drift-correct.
	if math.Abs(postMean-idealRate) > t.cfg.DriftThreshold {
		postMean -= t.cfg.DriftRate * (postMean - idealRate)
	}

	if math.IsNaN(postMean) || math.IsInf(postMean, 0) ||
		math.IsNaN(postVar) || math.IsInf(postVar, 0) {
		return
	}
	if postMean < 0 {
		postMean = 0
	}
	if postVar < minVariance {
		postVar = minVariance
	}

	s.PriorMean = priorMean
	s.PriorVariance = priorVar
	s.ObservedRate = y
	s.PosteriorMean = postMean
	s.PosteriorVariance = postVar
	s.LastUpdate = dateOnly(at)
}

// Predict projects the posterior daysAhead days forward without observing.
func (t *RateTracker) Predict(id string, daysAhead int) (mean, variance float64, ok bool) {
	s, found := t.states[id]
	if !found {
		return 0, 0, false
	}
	return s.PosteriorMean, s.PosteriorVariance + t.cfg.ProcessNoise*float64(daysAhead)/7.0, true
}

// ConfidenceInterval returns the interval around the tracked rate at the
// given level. Levels of 0.99 and above use the 0.99 z-value (2.576); any
// lower level uses the 0.95 z-value (1.96). The lower bound is clamped at
// zero. Returns nil for unknown ids.
func (t *RateTracker) ConfidenceInterval(id string, level float64) *Interval {
	s, ok := t.states[id]
	if !ok {
		return nil
	}
	z := 1.96
	if level >= 0.99 {
		z = 2.576
	}
	sd := math.Sqrt(s.PosteriorVariance)
	lower := s.PosteriorMean - z*sd
	if lower < 0 {
		lower = 0
	}
	return &Interval{
		Lower: lower,
		Upper: s.PosteriorMean + z*sd,
		Mean:  s.PosteriorMean,
	}
}
