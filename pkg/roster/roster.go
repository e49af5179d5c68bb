package roster

import (
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/gieplan/pkg/engine"
)

// --- Request types ---

// GenerateRequest is the JSON body for POST /api/v1/rosters/generate.
type GenerateRequest struct {
	StartDate            string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Weeks                int    `json:"weeks" validate:"required,min=1,max=52"`
	EnforceNoConsecutive *bool  `json:"enforce_no_consecutive"` // default true
	RequireMentor        *bool  `json:"require_mentor"`         // default true
	TeamSize             int    `json:"team_size"`              // default from config
	SubstituteCount      *int   `json:"substitute_count"`       // default from config
	Seed                 *int64 `json:"seed"`                    // default: current timestamp
}

// ReplaceRequest is the JSON body for POST /api/v1/rosters/:id/replace.
type ReplaceRequest struct {
	WeekStart string `json:"week_start" validate:"required,datetime=2006-01-02"`
	OldID     string `json:"old_id" validate:"required,uuid"`
	NewID     string `json:"new_id" validate:"required,uuid"`
}

// SwapRequest is the JSON body for POST /api/v1/rosters/swap.
type SwapRequest struct {
	IDA string `json:"id_a" validate:"required,uuid"`
	IDB string `json:"id_b" validate:"required,uuid"`
}

// AnnotateWeekRequest updates a week's free-form annotations.
type AnnotateWeekRequest struct {
	Comment         *string `json:"comment"`
	Emergency       *bool   `json:"emergency"`
	EmergencyReason *string `json:"emergency_reason"`
}

// --- Response types ---

// WeekResponse is one week of a roster.
type WeekResponse struct {
	WeekStart       string    `json:"week_start"`
	Main            []string  `json:"main"`
	Substitutes     []string  `json:"substitutes"`
	PriorityScores  []float64 `json:"priority_scores"`
	HasMentor       bool      `json:"has_mentor"`
	Comment         *string   `json:"comment,omitempty"`
	Emergency       bool      `json:"emergency,omitempty"`
	EmergencyReason *string   `json:"emergency_reason,omitempty"`
}

// Response is the JSON shape of a roster.
type Response struct {
	ID          uuid.UUID      `json:"id"`
	StartDate   string         `json:"start_date"`
	Weeks       int            `json:"weeks"`
	Seed        int64          `json:"seed"`
	CreatedAt   time.Time      `json:"created_at"`
	Assignments []WeekResponse `json:"assignments"`
}

// GenerateResponse is returned by the generate endpoint: the persisted
// roster plus the engine's warnings and fairness metrics.
type GenerateResponse struct {
	Roster   Response        `json:"roster"`
	Warnings []string        `json:"warnings"`
	Metrics  MetricsResponse `json:"metrics"`
}

// ViolationResponse is one constraint violation.
type ViolationResponse struct {
	Kind          string    `json:"kind"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Value         float64   `json:"value"`
	Bound         float64   `json:"bound"`
	Severity      float64   `json:"severity"`
	At            time.Time `json:"at"`
}

// ActionResponse is one corrective action.
type ActionResponse struct {
	Kind          string  `json:"kind"`
	ParticipantID string  `json:"participant_id"`
	Magnitude     float64 `json:"magnitude"`
	DurationWeeks int     `json:"duration_weeks"`
}

// MetricsResponse is the JSON shape of the fairness metrics.
type MetricsResponse struct {
	Mean              float64             `json:"mean"`
	Variance          float64             `json:"variance"`
	StdDev            float64             `json:"std_dev"`
	CV                float64             `json:"cv"`
	Gini              float64             `json:"gini"`
	Theil             float64             `json:"theil"`
	MaxDeficit        float64             `json:"max_deficit"`
	MinDeficit        float64             `json:"min_deficit"`
	NormalizedEntropy float64             `json:"normalized_entropy"`
	ConvergenceRate   float64             `json:"convergence_rate"`
	Violations        []ViolationResponse `json:"violations"`
	CorrectiveActions []ActionResponse    `json:"corrective_actions"`
}

// IntervalResponse is a confidence interval around a tracked rate.
type IntervalResponse struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Mean  float64 `json:"mean"`
}

// --- Conversions ---

// Row is a roster as loaded from the database.
type Row struct {
	ID          uuid.UUID
	StartDate   time.Time
	Weeks       int
	Seed        int64
	CreatedAt   time.Time
	Assignments []WeekRow
}

// WeekRow is one stored week assignment.
type WeekRow struct {
	ID              uuid.UUID
	WeekStart       time.Time
	Main            []string
	Substitutes     []string
	PriorityScores  []float64
	HasMentor       bool
	Comment         *string
	Emergency       bool
	EmergencyReason *string
}

// ToEngine converts a stored roster to the engine's shape.
func (r *Row) ToEngine() engine.Roster {
	out := engine.Roster{
		ID:        r.ID.String(),
		StartDate: r.StartDate,
		Weeks:     r.Weeks,
		CreatedAt: r.CreatedAt,
	}
	for _, w := range r.Assignments {
		out.Assignments = append(out.Assignments, engine.WeekAssignment{
			WeekStart:       w.WeekStart,
			Main:            w.Main,
			Substitutes:     w.Substitutes,
			PriorityScores:  w.PriorityScores,
			HasMentor:       w.HasMentor,
			Comment:         w.Comment,
			Emergency:       w.Emergency,
			EmergencyReason: w.EmergencyReason,
		})
	}
	return out
}

// ToResponse converts a stored roster to the API shape.
func (r *Row) ToResponse() Response {
	resp := Response{
		ID:          r.ID,
		StartDate:   r.StartDate.Format("2006-01-02"),
		Weeks:       r.Weeks,
		Seed:        r.Seed,
		CreatedAt:   r.CreatedAt,
		Assignments: make([]WeekResponse, 0, len(r.Assignments)),
	}
	for _, w := range r.Assignments {
		resp.Assignments = append(resp.Assignments, WeekResponse{
			WeekStart:       w.WeekStart.Format("2006-01-02"),
			Main:            w.Main,
			Substitutes:     w.Substitutes,
			PriorityScores:  w.PriorityScores,
			HasMentor:       w.HasMentor,
			Comment:         w.Comment,
			Emergency:       w.Emergency,
			EmergencyReason: w.EmergencyReason,
		})
	}
	return resp
}

// ToEngineRosters converts stored rosters for an engine call.
func ToEngineRosters(rows []Row) []engine.Roster {
	out := make([]engine.Roster, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEngine())
	}
	return out
}

// metricsToResponse converts engine metrics to the API shape.
func metricsToResponse(m engine.FairnessMetrics) MetricsResponse {
	resp := MetricsResponse{
		Mean:              m.Mean,
		Variance:          m.Variance,
		StdDev:            m.StdDev,
		CV:                m.CV,
		Gini:              m.Gini,
		Theil:             m.Theil,
		MaxDeficit:        m.MaxDeficit,
		MinDeficit:        m.MinDeficit,
		NormalizedEntropy: m.NormalizedEntropy,
		ConvergenceRate:   m.ConvergenceRate,
		Violations:        []ViolationResponse{},
		CorrectiveActions: []ActionResponse{},
	}
	for _, v := range m.Violations {
		resp.Violations = append(resp.Violations, ViolationResponse{
			Kind:          string(v.Kind),
			ParticipantID: v.ParticipantID,
			Value:         v.Value,
			Bound:         v.Bound,
			Severity:      v.Severity,
			At:            v.At,
		})
	}
	for _, a := range m.CorrectiveActions {
		resp.CorrectiveActions = append(resp.CorrectiveActions, ActionResponse{
			Kind:          string(a.Kind),
			ParticipantID: a.ParticipantID,
			Magnitude:     a.Magnitude,
			DurationWeeks: a.DurationWeeks,
		})
	}
	return resp
}
