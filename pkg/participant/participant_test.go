package participant

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/gieplan/pkg/engine"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRowToEngine(t *testing.T) {
	end := d("2025-03-01")
	mentee := uuid.New()
	row := Row{
		ID:          uuid.New(),
		Name:        "Hugs",
		ArrivalDate: d("2025-01-01"),
		Periods: []Period{
			{Start: d("2025-01-01"), End: &end},
			{Start: d("2025-06-01")},
		},
		MenteeIDs: []uuid.UUID{mentee},
	}

	p := row.ToEngine()
	if p.ID != row.ID.String() {
		t.Errorf("ID = %q", p.ID)
	}
	if len(p.ProgramPeriods) != 2 {
		t.Fatalf("periods = %d, want 2", len(p.ProgramPeriods))
	}
	if p.ProgramPeriods[0].End == nil || !p.ProgramPeriods[0].End.Equal(end) {
		t.Error("first period end lost in conversion")
	}
	if p.ProgramPeriods[1].End != nil {
		t.Error("open period must stay open")
	}
	if len(p.MentorshipAssignments) != 1 || p.MentorshipAssignments[0] != mentee.String() {
		t.Errorf("mentees = %v", p.MentorshipAssignments)
	}

	// Round-trip sanity: active in the open period, not in the gap.
	if !p.ActiveOn(d("2025-07-01")) {
		t.Error("should be active in open period")
	}
	if p.ActiveOn(d("2025-04-01")) {
		t.Error("should be inactive in the gap")
	}
}

func TestRowToResponse(t *testing.T) {
	row := Row{
		ID:          uuid.New(),
		Name:        "Jay",
		ArrivalDate: d("2025-01-01"),
		Periods:     []Period{{Start: d("2025-01-01")}},
	}
	cfg := engine.DefaultConfig()

	resp := row.ToResponse(d("2025-06-01"), 0, cfg)
	if !resp.Active {
		t.Error("participant with open period should be active")
	}
	if !resp.Experienced {
		t.Error("151 days present should count as experienced")
	}

	young := row.ToResponse(d("2025-01-15"), 0, cfg)
	if young.Experienced {
		t.Error("14 days present without assignments is not experienced")
	}

	decorated := row.ToResponse(d("2025-01-15"), cfg.ExperienceAssignments, cfg)
	if !decorated.Experienced {
		t.Error("enough historical assignments should count as experienced")
	}
}
