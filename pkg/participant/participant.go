package participant

import (
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/gieplan/pkg/engine"
)

// --- Request types ---

// CreateRequest is the JSON body for POST /api/v1/participants.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	ArrivalDate string `json:"arrival_date" validate:"required,datetime=2006-01-02"`
}

// UpdateRequest is the JSON body for PUT /api/v1/participants/:id.
type UpdateRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// LeaveRequest closes the open program period.
type LeaveRequest struct {
	EndDate string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason  *string `json:"reason"`
}

// RejoinRequest appends a fresh program period.
type RejoinRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// MentorshipRequest replaces the set of mentees for a participant.
type MentorshipRequest struct {
	MenteeIDs []uuid.UUID `json:"mentee_ids"`
}

// --- Response types ---

// PeriodResponse is one program period in a participant response.
type PeriodResponse struct {
	Start           string  `json:"start"`
	End             *string `json:"end,omitempty"`
	DepartureReason *string `json:"departure_reason,omitempty"`
}

// Response is the JSON shape of a participant.
type Response struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	ArrivalDate    string           `json:"arrival_date"`
	Active         bool             `json:"active"`
	Experienced    bool             `json:"experienced"`
	ProgramPeriods []PeriodResponse `json:"program_periods"`
	MenteeIDs      []uuid.UUID      `json:"mentee_ids"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Row is a participant with its periods and mentees as loaded from the
// database.
type Row struct {
	ID          uuid.UUID
	Name        string
	ArrivalDate time.Time
	Periods     []Period
	MenteeIDs   []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Period is one program period row.
type Period struct {
	ID              uuid.UUID
	Start           time.Time
	End             *time.Time
	DepartureReason *string
}

// ToEngine converts a database row to the engine's participant shape.
func (r *Row) ToEngine() engine.Participant {
	p := engine.Participant{
		ID:          r.ID.String(),
		Name:        r.Name,
		ArrivalDate: r.ArrivalDate,
	}
	for _, per := range r.Periods {
		p.ProgramPeriods = append(p.ProgramPeriods, engine.ProgramPeriod{
			Start:           per.Start,
			End:             per.End,
			DepartureReason: per.DepartureReason,
		})
	}
	for _, m := range r.MenteeIDs {
		p.MentorshipAssignments = append(p.MentorshipAssignments, m.String())
	}
	return p
}

// ToResponse converts a Row to the API response shape. Active and
// experienced are evaluated at now against the given historical count.
func (r *Row) ToResponse(now time.Time, historicalCount int, cfg engine.Config) Response {
	ep := r.ToEngine()
	resp := Response{
		ID:          r.ID,
		Name:        r.Name,
		ArrivalDate: r.ArrivalDate.Format("2006-01-02"),
		Active:      ep.ActiveOn(now),
		Experienced: ep.DaysPresent(now) >= cfg.ExperienceDays || historicalCount >= cfg.ExperienceAssignments,
		MenteeIDs:   r.MenteeIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, per := range r.Periods {
		pr := PeriodResponse{
			Start:           per.Start.Format("2006-01-02"),
			DepartureReason: per.DepartureReason,
		}
		if per.End != nil {
			end := per.End.Format("2006-01-02")
			pr.End = &end
		}
		resp.ProgramPeriods = append(resp.ProgramPeriods, pr)
	}
	return resp
}

// ToEngineParticipants converts a slice of rows for an engine call.
func ToEngineParticipants(rows []Row) []engine.Participant {
	out := make([]engine.Participant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEngine())
	}
	return out
}
