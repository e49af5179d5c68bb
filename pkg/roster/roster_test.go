package roster

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/gieplan/pkg/engine"
)

func TestRowToEngineRoundTrip(t *testing.T) {
	comment := "note"
	row := Row{
		ID:        uuid.New(),
		StartDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Weeks:     1,
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Assignments: []WeekRow{
			{
				WeekStart:      time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
				Main:           []string{"a", "b"},
				Substitutes:    []string{"c"},
				PriorityScores: []float64{0.5, 0.25},
				HasMentor:      true,
				Comment:        &comment,
			},
		},
	}

	er := row.ToEngine()
	if er.ID != row.ID.String() {
		t.Errorf("ID = %q", er.ID)
	}
	if len(er.Assignments) != 1 {
		t.Fatalf("assignments = %d, want 1", len(er.Assignments))
	}
	wa := er.Assignments[0]
	if len(wa.Main) != 2 || wa.Main[0] != "a" {
		t.Errorf("main = %v", wa.Main)
	}
	if !wa.HasMentor {
		t.Error("mentor flag lost")
	}
	if wa.Comment == nil || *wa.Comment != "note" {
		t.Error("comment lost")
	}
}

func TestMetricsToResponse(t *testing.T) {
	at := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	m := engine.FairnessMetrics{
		Mean: 0.2,
		Gini: 0.05,
		CV:   0.1,
		Violations: []engine.Violation{
			{Kind: engine.ViolationVariance, Value: 0.07, Bound: 0.05, Severity: 1.4, At: at},
		},
		CorrectiveActions: []engine.CorrectiveAction{
			{Kind: engine.ActionBoost, ParticipantID: "p1", Magnitude: 1.4, DurationWeeks: 6},
		},
	}

	resp := metricsToResponse(m)
	if resp.Mean != 0.2 || resp.Gini != 0.05 {
		t.Errorf("stats lost: %+v", resp)
	}
	if len(resp.Violations) != 1 || resp.Violations[0].Kind != "variance" {
		t.Errorf("violations = %+v", resp.Violations)
	}
	if len(resp.CorrectiveActions) != 1 || resp.CorrectiveActions[0].Kind != "boost" {
		t.Errorf("actions = %+v", resp.CorrectiveActions)
	}
	if resp.CorrectiveActions[0].DurationWeeks != 6 {
		t.Errorf("duration = %d", resp.CorrectiveActions[0].DurationWeeks)
	}
}

func TestMetricsToResponseEmpty(t *testing.T) {
	resp := metricsToResponse(engine.FairnessMetrics{})
	if resp.Violations == nil || resp.CorrectiveActions == nil {
		t.Error("empty slices must marshal as [], not null")
	}
}
