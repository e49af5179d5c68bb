package engine

import (
	"errors"
	"sync/atomic"
)

// Hard generation failures. These abort a call with no partial roster.
var (
	ErrInvalidStartDate     = errors.New("invalid start date")
	ErrWeeksOutOfRange      = errors.New("weeks out of range")
	ErrNoActiveParticipants = errors.New("no active participants")
	ErrAllWeeksCovered      = errors.New("all requested weeks already covered")
)

// Config holds the engine's tuneable constants. DefaultConfig returns the
// calibrated production values; tests occasionally tighten or loosen
// individual knobs.
type Config struct {
	// Experience thresholds for the mentor-coverage rule.
	ExperienceDays        int
	ExperienceAssignments int

	// Priority scorer.
	PenaltyLambda float64

	// Kalman rate tracker.
	ProcessNoise     float64
	ObservationNoise float64
	DriftThreshold   float64
	DriftRate        float64
	InitialVariance  float64
	JoinerVariance   float64

	// Constraint monitor.
	DeficitBoundBeta float64
	MaxRateVariance  float64
	GiniTarget       float64
	CVTarget         float64
	RateBandLow      float64
	RateBandHigh     float64

	// Stochastic selector.
	DiversityWindow int
	DiversityWeight float64
	TemperatureMin  float64
	TemperatureMax  float64
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		ExperienceDays:        90,
		ExperienceAssignments: 4,
		PenaltyLambda:         0.1,
		ProcessNoise:          0.005,
		ObservationNoise:      0.05,
		DriftThreshold:        0.03,
		DriftRate:             0.2,
		InitialVariance:       0.1,
		JoinerVariance:        0.2,
		DeficitBoundBeta:      2.0,
		MaxRateVariance:       0.05,
		GiniTarget:            0.25,
		CVTarget:              0.30,
		RateBandLow:           0.80,
		RateBandHigh:          1.20,
		DiversityWindow:       5,
		DiversityWeight:       0.1,
		TemperatureMin:        0.1,
		TemperatureMax:        5.0,
	}
}

// Flags selects between algorithm variants.
type Flags struct {
	UsePenalizedPriority  bool
	UseBayesianUpdates    bool
	UseConstraintChecking bool
	UseSoftmaxSelection   bool
}

// DefaultFlags returns the production flag set.
func DefaultFlags() Flags {
	return Flags{
		UsePenalizedPriority:  true,
		UseBayesianUpdates:    true,
		UseConstraintChecking: true,
		UseSoftmaxSelection:   false,
	}
}

// Options is the input to one generation call. StartDate is an ISO
// YYYY-MM-DD string; it is snapped to the Monday of its ISO week. Seed
// drives every random draw of the call — identical options and seed yield a
// byte-identical roster from engines in the same state, such as two fresh
// ones. Now stamps the roster's creation time and the
// violation timestamps; a zero Now falls back to the snapped start date so
// results stay a pure function of the inputs.
type Options struct {
	StartDate            string
	Weeks                int
	Participants         []Participant
	ExistingRosters      []Roster
	EnforceNoConsecutive bool
	RequireMentor        bool
	TeamSize             int
	SubstituteCount      int
	Seed                 uint32
	Now                  string // ISO YYYY-MM-DD, optional
}

// Result is the outcome of a successful generation call. Warnings carry the
// soft failures (skipped weeks, relaxed constraints, missing mentors); the
// roster is complete despite them.
type Result struct {
	Roster   Roster
	Warnings []string
	Metrics  FairnessMetrics
}

// Engine is the fairness and selection engine. It owns the per-participant
// Bayesian rate states and the variance history; both survive across
// generation calls so that later rosters build on earlier state. An Engine
// is not safe for concurrent use; hosts that want parallelism run
// independent instances.
type Engine struct {
	cfg     Config
	flags   Flags
	tracker *RateTracker
	monitor *ConstraintMonitor

	// pendingActions are the corrective actions emitted by the last
	// postflight check, applied as priority multipliers on the next run.
	pendingActions []CorrectiveAction

	// weeksDone counts completed weeks across the engine's lifetime. It is
	// the only field a host may read concurrently, for progress reporting.
	weeksDone atomic.Int64
}

// New creates an engine with the given tuning and flags.
func New(cfg Config, flags Flags) *Engine {
	return &Engine{
		cfg:     cfg,
		flags:   flags,
		tracker: NewRateTracker(cfg),
		monitor: NewConstraintMonitor(cfg),
	}
}

// NewDefault creates an engine with DefaultConfig and DefaultFlags.
func NewDefault() *Engine {
	return New(DefaultConfig(), DefaultFlags())
}

// Config returns the engine's tuning.
func (e *Engine) Config() Config {
	return e.cfg
}

// Flags returns the engine's feature flags.
func (e *Engine) Flags() Flags {
	return e.flags
}

// WeeksDone returns the number of weeks generated so far across all calls.
// Safe to read from another goroutine while Generate runs.
func (e *Engine) WeeksDone() int64 {
	return e.weeksDone.Load()
}

// ConfidenceInterval returns the tracked rate interval for a participant,
// or nil when the participant has never been tracked.
func (e *Engine) ConfidenceInterval(id string, level float64) *Interval {
	return e.tracker.ConfidenceInterval(id, level)
}
