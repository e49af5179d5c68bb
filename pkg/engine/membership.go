package engine

import "time"

// ActiveOn reports whether the participant has a program period containing d.
func (p *Participant) ActiveOn(d time.Time) bool {
	d = dateOnly(d)
	for _, per := range p.ProgramPeriods {
		if per.Start.After(d) {
			continue
		}
		if per.End == nil || per.End.After(d) {
			return true
		}
	}
	return false
}

// DaysPresent returns the total number of calendar days the participant has
// spent inside program periods up to d. Days before the first interval count
// as zero.
func (p *Participant) DaysPresent(d time.Time) int {
	return p.presentBetween(time.Time{}, dateOnly(d))
}

// presentBetween sums the overlap in days between [from, to) and the
// participant's program periods. A zero from means "since the beginning".
func (p *Participant) presentBetween(from, to time.Time) int {
	total := 0
	for _, per := range p.ProgramPeriods {
		start := dateOnly(per.Start)
		if !from.IsZero() && start.Before(from) {
			start = from
		}
		end := to
		if per.End != nil && dateOnly(*per.End).Before(to) {
			end = dateOnly(*per.End)
		}
		if end.After(start) {
			total += daysBetween(start, end)
		}
	}
	return total
}

// daysInPool returns the calendar days from firstEligible to d, reduced to
// the days the participant was actually present in that window. Absences
// between leave and return do not count, which keeps a returning member's
// selection rate from looking inflated.
func daysInPool(p *Participant, firstEligible, d time.Time) int {
	if firstEligible.IsZero() {
		return 0
	}
	d = dateOnly(d)
	fe := dateOnly(firstEligible)
	if fe.After(d) {
		return 0
	}
	return p.presentBetween(fe, d)
}

// isExperienced reports whether the participant counts as experienced on d:
// at least ExperienceDays days present, or at least ExperienceAssignments
// historical selections.
func isExperienced(cfg Config, p *Participant, d time.Time, historicalCount int) bool {
	if historicalCount >= cfg.ExperienceAssignments {
		return true
	}
	return p.DaysPresent(d) >= cfg.ExperienceDays
}
