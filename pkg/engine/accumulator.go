package engine

import "time"

// accumulator merges historical roster assignments with assignments made
// during the current generation run, and tracks each participant's
// first-eligible date.
type accumulator struct {
	historical    map[string]int
	accumulated   map[string]int
	firstEligible map[string]time.Time
}

// newAccumulator builds counts from the existing rosters and applies the
// first-eligible-date rule for participants that already appear in them.
// Participants with no history stay unmarked until markEligible is called:
// a joiner accrues no pool time (and so no deficit) before the engine first
// exposes them to a selection round.
func newAccumulator(participants []Participant, existing []Roster) *accumulator {
	a := &accumulator{
		historical:    make(map[string]int),
		accumulated:   make(map[string]int),
		firstEligible: make(map[string]time.Time),
	}
	a.rebuild(participants, existing)
	return a
}

// rebuild recomputes historical counts and first-eligible dates from the
// given rosters. Used at construction and after wholesale roster deletion.
func (a *accumulator) rebuild(participants []Participant, rosters []Roster) {
	a.historical = make(map[string]int)
	earliestAppearance := make(map[string]time.Time)
	for _, r := range rosters {
		for _, w := range r.Assignments {
			ws := dateOnly(w.WeekStart)
			for _, id := range w.Main {
				a.historical[id]++
				if cur, ok := earliestAppearance[id]; !ok || ws.Before(cur) {
					earliestAppearance[id] = ws
				}
			}
		}
	}

	a.firstEligible = make(map[string]time.Time)
	for i := range participants {
		p := &participants[i]
		appear, ok := earliestAppearance[p.ID]
		if !ok {
			continue
		}
		join := dateOnly(p.ArrivalDate)
		if join.After(appear) {
			a.firstEligible[p.ID] = join
		} else {
			a.firstEligible[p.ID] = appear
		}
	}
}

// markEligible records the first date a participant is exposed to a
// selection round. The date never moves forward afterwards, so a temporary
// absence does not reset fairness accounting.
func (a *accumulator) markEligible(id string, date time.Time) {
	if _, ok := a.firstEligible[id]; !ok {
		a.firstEligible[id] = dateOnly(date)
	}
}

// firstEligibleDate returns the recorded first-eligible date, if any.
func (a *accumulator) firstEligibleDate(id string) (time.Time, bool) {
	d, ok := a.firstEligible[id]
	return d, ok
}

// recordAssignment increments the in-flight count for each selected id.
func (a *accumulator) recordAssignment(ids []string) {
	for _, id := range ids {
		a.accumulated[id]++
	}
}

// totalCount returns historical plus in-flight selections for id.
func (a *accumulator) totalCount(id string) int {
	return a.historical[id] + a.accumulated[id]
}

// historicalCount returns only the count from persisted rosters.
func (a *accumulator) historicalCount(id string) int {
	return a.historical[id]
}

// recomputeAfterDeletion rebuilds historical counts and first-eligible
// dates from the surviving rosters. In-flight counts are reset.
func (a *accumulator) recomputeAfterDeletion(participants []Participant, rosters []Roster) {
	a.accumulated = make(map[string]int)
	a.rebuild(participants, rosters)
}
