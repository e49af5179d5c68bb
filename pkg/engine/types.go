package engine

import "time"

// ProgramPeriod is one half-open membership interval [Start, End).
// A nil End means the participant is still in the pool.
type ProgramPeriod struct {
	Start           time.Time
	End             *time.Time
	DepartureReason *string
}

// Participant is one member of the watering pool. ID is the opaque stable
// identifier the collaborator layer assigns; Name is carried for display and
// never used in computation.
type Participant struct {
	ID                    string
	Name                  string
	ArrivalDate           time.Time
	ProgramPeriods        []ProgramPeriod
	MentorshipAssignments []string
}

// WeekAssignment is one row of a roster: who waters in the week starting at
// WeekStart (always a Monday), plus the designated substitutes.
type WeekAssignment struct {
	WeekStart       time.Time
	Main            []string
	Substitutes     []string
	PriorityScores  []float64
	HasMentor       bool
	Comment         *string
	Emergency       bool
	EmergencyReason *string
}

// Roster is a contiguous block of week assignments produced by one
// generation call.
type Roster struct {
	ID          string
	StartDate   time.Time
	Weeks       int
	CreatedAt   time.Time
	Assignments []WeekAssignment
}

// ViolationKind enumerates fairness constraint violations.
type ViolationKind string

const (
	ViolationCumulativeDeficit ViolationKind = "cumulative_deficit"
	ViolationVariance          ViolationKind = "variance"
)

// Violation is a detected fairness constraint breach. Severity is the ratio
// of the observed value to the allowed bound.
type Violation struct {
	Kind          ViolationKind
	ParticipantID string
	Value         float64
	Bound         float64
	Severity      float64
	At            time.Time
}

// ActionKind enumerates corrective action types.
type ActionKind string

const (
	ActionBoost     ActionKind = "boost"
	ActionPenalty   ActionKind = "penalty"
	ActionMandatory ActionKind = "mandatory"
)

// CorrectiveAction advises the generator to bias future selections for one
// participant. Magnitude scales the priority multiplier, DurationWeeks is
// how many upcoming weeks the bias applies to.
type CorrectiveAction struct {
	Kind          ActionKind
	ParticipantID string
	Magnitude     float64
	DurationWeeks int
}

// FairnessMetrics summarises the distribution of selection rates across the
// active pool.
type FairnessMetrics struct {
	Mean              float64
	Variance          float64
	StdDev            float64
	CV                float64
	Gini              float64
	Theil             float64
	MaxDeficit        float64
	MinDeficit        float64
	NormalizedEntropy float64
	ConvergenceRate   float64
	Violations        []Violation
	CorrectiveActions []CorrectiveAction
}

// Interval is a confidence interval around a tracked selection rate.
type Interval struct {
	Lower float64
	Upper float64
	Mean  float64
}

// dateOnly truncates t to midnight UTC. All engine date arithmetic happens
// on day granularity.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole calendar days from a to b. Both are assumed to
// be midnight-UTC dates.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// mondayOf returns the Monday of the ISO week containing t.
func mondayOf(t time.Time) time.Time {
	d := dateOnly(t)
	wd := int(d.Weekday()) // 0=Sunday
	if wd == 0 {
		wd = 7
	}
	return d.AddDate(0, 0, 1-wd)
}
