package engine

import (
	"fmt"
	"sort"
	"time"
)

// ReplaceInWeek substitutes newID for oldID in the week starting at
// weekStart, wherever oldID appears (main or substitutes). The input
// rosters are not mutated; a fresh copy is returned.
func ReplaceInWeek(rosters []Roster, weekStart time.Time, oldID, newID string) ([]Roster, error) {
	ws := dateOnly(weekStart)
	out := cloneRosters(rosters)

	for ri := range out {
		for wi := range out[ri].Assignments {
			wa := &out[ri].Assignments[wi]
			if !dateOnly(wa.WeekStart).Equal(ws) {
				continue
			}
			if containsID(wa.Main, newID) || containsID(wa.Substitutes, newID) {
				return nil, fmt.Errorf("participant %s is already assigned in week %s", newID, ws.Format("2006-01-02"))
			}
			replaced := replaceID(wa.Main, oldID, newID) || replaceID(wa.Substitutes, oldID, newID)
			if !replaced {
				return nil, fmt.Errorf("participant %s is not assigned in week %s", oldID, ws.Format("2006-01-02"))
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("no assignment found for week %s", ws.Format("2006-01-02"))
}

// SwapGlobally exchanges every occurrence of idA and idB across all
// rosters, in both main teams and substitute lists.
func SwapGlobally(rosters []Roster, idA, idB string) []Roster {
	out := cloneRosters(rosters)
	swap := func(ids []string) {
		for i, id := range ids {
			switch id {
			case idA:
				ids[i] = idB
			case idB:
				ids[i] = idA
			}
		}
	}
	for ri := range out {
		for wi := range out[ri].Assignments {
			swap(out[ri].Assignments[wi].Main)
			swap(out[ri].Assignments[wi].Substitutes)
		}
	}
	return out
}

// FillGap removes a deleted participant from every assignment and fills the
// holes with the highest-priority available replacement. Weeks are processed
// in chronological order so later replacements see the counts produced by
// earlier ones. When no replacement is available the id is dropped;
// substitutes are never promoted into main automatically. Ties are broken by
// id, which makes the operation idempotent.
func (e *Engine) FillGap(rosters []Roster, deletedID string, participants []Participant) []Roster {
	out := cloneRosters(rosters)

	byID := make(map[string]*Participant, len(participants))
	for i := range participants {
		byID[participants[i].ID] = &participants[i]
	}

	// Index every assignment across rosters and order chronologically.
	type weekRef struct {
		ri, wi int
		start  time.Time
	}
	var weeks []weekRef
	for ri := range out {
		for wi := range out[ri].Assignments {
			weeks = append(weeks, weekRef{ri, wi, dateOnly(out[ri].Assignments[wi].WeekStart)})
		}
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].start.Before(weeks[j].start) })

	counts := make(map[string]int)
	firstSeen := make(map[string]time.Time)

	for _, ref := range weeks {
		wa := &out[ref.ri].Assignments[ref.wi]
		w := ref.start

		for i := range participants {
			p := &participants[i]
			if p.ID == deletedID || !p.ActiveOn(w) {
				continue
			}
			if _, ok := firstSeen[p.ID]; !ok {
				firstSeen[p.ID] = w
			}
		}

		if containsID(wa.Main, deletedID) {
			assigned := append(append([]string{}, wa.Main...), wa.Substitutes...)
			if repl, ok := e.pickReplacement(w, deletedID, assigned, participants, counts, firstSeen); ok {
				replaceID(wa.Main, deletedID, repl)
			} else {
				wa.Main = removeID(wa.Main, deletedID)
				if len(wa.PriorityScores) > len(wa.Main) {
					wa.PriorityScores = wa.PriorityScores[:len(wa.Main)]
				}
			}
		}
		if containsID(wa.Substitutes, deletedID) {
			assigned := append(append([]string{}, wa.Main...), wa.Substitutes...)
			if repl, ok := e.pickReplacement(w, deletedID, assigned, participants, counts, firstSeen); ok {
				replaceID(wa.Substitutes, deletedID, repl)
			} else {
				wa.Substitutes = removeID(wa.Substitutes, deletedID)
			}
		}

		for _, id := range wa.Main {
			counts[id]++
		}
	}
	return out
}

// pickReplacement scores the available pool for week w with the rate-deficit
// rule and returns the highest-priority candidate.
func (e *Engine) pickReplacement(w time.Time, deletedID string, assigned []string,
	participants []Participant, counts map[string]int, firstSeen map[string]time.Time) (string, bool) {

	var cands []*candidate
	for i := range participants {
		p := &participants[i]
		if p.ID == deletedID || containsID(assigned, p.ID) || !p.ActiveOn(w) {
			continue
		}
		fs, ok := firstSeen[p.ID]
		if !ok {
			fs = w
		}
		cands = append(cands, &candidate{
			id:       p.ID,
			daysPool: daysInPool(p, fs, w),
			total:    counts[p.ID],
		})
	}
	if len(cands) == 0 {
		return "", false
	}

	scoreCandidates(e.cfg, e.flags.UsePenalizedPriority, cands, fixedRand{})

	best := cands[0]
	for _, c := range cands[1:] {
		if c.priority > best.priority+tieEpsilon {
			best = c
		}
	}
	return best.id, true
}

// fixedRand is the zero-entropy Rand used where an operation must be fully
// deterministic without a seed: the tie-break jitter degenerates to zero
// and ties resolve by id order.
type fixedRand struct{}

func (fixedRand) Float64() float64                 { return 0 }
func (fixedRand) Gaussian(mu, sigma float64) float64 { return mu }

func cloneRosters(rosters []Roster) []Roster {
	out := make([]Roster, len(rosters))
	for i, r := range rosters {
		out[i] = r
		out[i].Assignments = make([]WeekAssignment, len(r.Assignments))
		for j, wa := range r.Assignments {
			c := wa
			c.Main = append([]string{}, wa.Main...)
			c.Substitutes = append([]string{}, wa.Substitutes...)
			c.PriorityScores = append([]float64{}, wa.PriorityScores...)
			out[i].Assignments[j] = c
		}
	}
	return out
}

// replaceID swaps the first occurrence of oldID for newID in place.
func replaceID(ids []string, oldID, newID string) bool {
	for i, id := range ids {
		if id == oldID {
			ids[i] = newID
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
