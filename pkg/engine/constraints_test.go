package engine

import (
	"math"
	"testing"
)

func TestGini(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
		tol  float64
	}{
		{"perfect equality", []float64{1, 1, 1, 1}, 0, 1e-12},
		{"empty", nil, 0, 0},
		{"zero mean", []float64{0, 0}, 0, 0},
		{"one has everything", []float64{0, 0, 0, 4}, 0.75, 1e-12},
		{"moderate spread", []float64{1, 2, 3}, 0.2222, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gini(tt.xs)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("gini = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("gini %v out of [0,1]", got)
			}
		})
	}
}

func TestTheil(t *testing.T) {
	if got := theil([]float64{2, 2, 2}); math.Abs(got) > 1e-12 {
		t.Errorf("equal distribution Theil = %v, want 0", got)
	}

	got := theil([]float64{0, 0, 0, 4})
	maxTheil := math.Log(4)
	if got < 0 || got > maxTheil+1e-9 {
		t.Errorf("Theil %v out of [0, ln 4]", got)
	}
	if got < 1 {
		t.Errorf("concentrated distribution should have high Theil, got %v", got)
	}
}

func TestCheckEmitsSortedViolations(t *testing.T) {
	cfg := DefaultConfig()
	m := NewConstraintMonitor(cfg)

	obs := []rateObservation{
		{id: "ok", rate: 1.0, deficit: 0.5, daysPool: 100},       // bound 20, fine
		{id: "bad", rate: 0.1, deficit: 25, daysPool: 100},       // bound 20, severity 1.25
		{id: "worse", rate: 3.0, deficit: -60, daysPool: 100},    // severity 3.0
	}
	_, violations, actions := m.Check(obs, date("2025-06-02"))

	if len(violations) < 2 {
		t.Fatalf("expected at least 2 violations, got %d", len(violations))
	}
	for i := 1; i < len(violations); i++ {
		if violations[i].Severity > violations[i-1].Severity {
			t.Errorf("violations not sorted by severity: %v before %v", violations[i-1].Severity, violations[i].Severity)
		}
	}
	// Among the per-participant deficit violations, 'worse' is the most
	// severe and must come before 'bad'.
	var deficitOrder []string
	for _, v := range violations {
		if v.Kind == ViolationCumulativeDeficit {
			deficitOrder = append(deficitOrder, v.ParticipantID)
		}
	}
	if len(deficitOrder) != 2 || deficitOrder[0] != "worse" || deficitOrder[1] != "bad" {
		t.Errorf("deficit violations = %v, want [worse bad]", deficitOrder)
	}

	// Positive deficit yields a boost, negative a penalty, with duration
	// ceil(4 * severity).
	var boost, penalty *CorrectiveAction
	for i := range actions {
		switch actions[i].ParticipantID {
		case "bad":
			boost = &actions[i]
		case "worse":
			penalty = &actions[i]
		}
	}
	if boost == nil || boost.Kind != ActionBoost {
		t.Fatalf("expected boost for 'bad', got %+v", boost)
	}
	if boost.DurationWeeks != 5 {
		t.Errorf("boost duration = %d, want ceil(4*1.25) = 5", boost.DurationWeeks)
	}
	if penalty == nil || penalty.Kind != ActionPenalty {
		t.Fatalf("expected penalty for 'worse', got %+v", penalty)
	}
}

func TestVarianceViolation(t *testing.T) {
	cfg := DefaultConfig()
	m := NewConstraintMonitor(cfg)

	obs := []rateObservation{
		{id: "a", rate: 0.0, daysPool: 10000},
		{id: "b", rate: 1.0, daysPool: 10000},
	}
	_, violations, _ := m.Check(obs, date("2025-06-02"))

	found := false
	for _, v := range violations {
		if v.Kind == ViolationVariance {
			found = true
			if v.Value <= cfg.MaxRateVariance {
				t.Errorf("variance violation value %v should exceed %v", v.Value, cfg.MaxRateVariance)
			}
		}
	}
	if !found {
		t.Error("expected a variance violation for rates {0, 1}")
	}
}

func TestConvergenceTrend(t *testing.T) {
	m := NewConstraintMonitor(DefaultConfig())

	if m.IsConverging(3) {
		t.Error("no history: must not report converging")
	}

	// Shrinking variance: converging.
	for _, v := range []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1} {
		m.pushVariance(v)
	}
	if !m.IsConverging(3) {
		t.Error("shrinking variance should report converging")
	}
	if rate := m.ConvergenceRate(3); rate >= 0 {
		t.Errorf("convergence rate should be negative, got %v", rate)
	}

	// Growing variance: diverging.
	m2 := NewConstraintMonitor(DefaultConfig())
	for _, v := range []float64{0.1, 0.1, 0.1, 0.5, 0.5, 0.5} {
		m2.pushVariance(v)
	}
	if m2.IsConverging(3) {
		t.Error("growing variance must not report converging")
	}
}

func TestVarianceHistoryBounded(t *testing.T) {
	m := NewConstraintMonitor(DefaultConfig())
	for i := 0; i < 100; i++ {
		m.pushVariance(float64(i))
	}
	if len(m.varianceHistory) != varianceHistorySize {
		t.Errorf("history length = %d, want cap %d", len(m.varianceHistory), varianceHistorySize)
	}
	if m.varianceHistory[len(m.varianceHistory)-1] != 99 {
		t.Error("history should keep the most recent snapshots")
	}
}
