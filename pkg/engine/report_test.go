package engine

import (
	"math"
	"testing"
)

func TestFairnessReportBalanced(t *testing.T) {
	e := NewDefault()
	pool := steadyPool("a", "b", "c")
	res, err := e.Generate(Options{
		StartDate:            "2025-01-06",
		Weeks:                12,
		Participants:         pool,
		EnforceNoConsecutive: true,
		Seed:                 7,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m := e.FairnessReport(pool, []Roster{res.Roster}, date("2025-04-07"))
	if m.Mean <= 0 {
		t.Errorf("mean rate = %v, want > 0", m.Mean)
	}
	if m.Gini < 0 || m.Gini > 1 {
		t.Errorf("Gini %v out of [0,1]", m.Gini)
	}
	if m.CV >= 0.30 {
		t.Errorf("CV = %v for a balanced pool, want < 0.30", m.CV)
	}
	if len(m.Violations) != 0 {
		t.Errorf("unexpected violations: %v", m.Violations)
	}
}

func TestFairnessReportIsReadOnly(t *testing.T) {
	e := NewDefault()
	pool := steadyPool("a", "b", "c")
	res, err := e.Generate(Options{
		StartDate:    "2025-01-06",
		Weeks:        4,
		Participants: pool,
		Seed:         7,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	before := len(e.monitor.varianceHistory)
	m1 := e.FairnessReport(pool, []Roster{res.Roster}, date("2025-02-10"))
	m2 := e.FairnessReport(pool, []Roster{res.Roster}, date("2025-02-10"))
	if len(e.monitor.varianceHistory) != before {
		t.Error("FairnessReport must not touch the variance history")
	}
	if m1.Mean != m2.Mean || m1.Gini != m2.Gini {
		t.Error("repeated reports over the same inputs must match")
	}
}

func TestFairnessReportSkipsUnexposed(t *testing.T) {
	e := NewDefault()
	pool := steadyPool("a", "b")
	res, err := e.Generate(Options{
		StartDate:    "2025-01-06",
		Weeks:        4,
		Participants: pool,
		Seed:         7,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// A participant who never appeared in any roster has no first-eligible
	// date and must not distort the distribution with a phantom zero rate.
	withGhost := append(append([]Participant{}, pool...), openParticipant("ghost", "2025-01-01"))
	m := e.FairnessReport(withGhost, []Roster{res.Roster}, date("2025-02-10"))
	if m.Mean <= 0 {
		t.Errorf("mean = %v; the unexposed participant should be excluded", m.Mean)
	}
}

func TestEngineConfidenceInterval(t *testing.T) {
	e := NewDefault()
	pool := steadyPool("a", "b", "c")
	if _, err := e.Generate(Options{
		StartDate:    "2025-01-06",
		Weeks:        10,
		Participants: pool,
		Seed:         7,
	}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	ci := e.ConfidenceInterval("a", 0.95)
	if ci == nil {
		t.Fatal("expected interval for tracked participant")
	}
	if ci.Lower < 0 || ci.Upper < ci.Lower || math.IsNaN(ci.Mean) {
		t.Errorf("malformed interval %+v", ci)
	}
	if e.ConfidenceInterval("nobody", 0.95) != nil {
		t.Error("expected nil for untracked id")
	}
}
