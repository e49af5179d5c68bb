package roster

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func icsFixture() Row {
	comment := "fertilizer week"
	reason := "heat wave"
	return Row{
		ID:        uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		StartDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Weeks:     2,
		Assignments: []WeekRow{
			{
				WeekStart:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
				Main:        []string{"hugs", "jay"},
				Substitutes: []string{"kompono"},
				Comment:     &comment,
			},
			{
				WeekStart:       time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
				Main:            []string{"kompono", "hugs"},
				Emergency:       true,
				EmergencyReason: &reason,
			},
		},
	}
}

func TestGenerateICS(t *testing.T) {
	ics := generateICS(icsFixture())

	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") {
		t.Error("missing calendar header")
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("missing calendar footer")
	}
	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("event count = %d, want 2", got)
	}
	if !strings.Contains(ics, "DTSTART;VALUE=DATE:20250106") {
		t.Error("missing first week start date")
	}
	if !strings.Contains(ics, "DTEND;VALUE=DATE:20250113") {
		t.Error("missing first week end date")
	}
	if !strings.Contains(ics, "SUMMARY:Watering duty: hugs, jay") {
		t.Error("missing team summary")
	}
	if !strings.Contains(ics, "fertilizer week") {
		t.Error("missing comment in description")
	}
	if !strings.Contains(ics, "EMERGENCY WEEK: heat wave") {
		t.Error("missing emergency annotation")
	}

	// UIDs must be unique per week.
	if strings.Count(ics, "UID:11111111-2222-3333-4444-555555555555-20250106@gieplan") != 1 {
		t.Error("missing or duplicated week UID")
	}
}

func TestGenerateICSEmptyRoster(t *testing.T) {
	ics := generateICS(Row{ID: uuid.New()})
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("empty roster should produce no events")
	}
	if !strings.Contains(ics, "END:VCALENDAR") {
		t.Error("calendar envelope must still be emitted")
	}
}
