package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	minWeeks = 1
	maxWeeks = 52

	defaultTeamSize        = 2
	defaultSubstituteCount = 2

	// Exclusion widens from "previous main" to "previous main and
	// substitutes" once the active pool is at least this large.
	wideExclusionPoolSize = 10

	convergenceWindow = 5
)

// activeAction is a corrective action currently applied to priorities.
type activeAction struct {
	kind       ActionKind
	multiplier float64
	weeksLeft  int
}

// Generate produces a roster covering opts.Weeks Mondays starting at the
// ISO-week Monday of opts.StartDate. Mondays already covered by an existing
// roster are skipped with a warning. Given engines in the same state (for
// example two fresh ones), identical options and seed produce identical
// output. Corrective actions and the variance history left by earlier calls
// on the same engine feed into later calls.
func (e *Engine) Generate(opts Options) (*Result, error) {
	start, err := time.Parse("2006-01-02", opts.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartDate, opts.StartDate)
	}
	if opts.Weeks < minWeeks || opts.Weeks > maxWeeks {
		return nil, fmt.Errorf("%w: %d (must be %d..%d)", ErrWeeksOutOfRange, opts.Weeks, minWeeks, maxWeeks)
	}

	teamSize := opts.TeamSize
	if teamSize <= 0 {
		teamSize = defaultTeamSize
	}
	subCount := opts.SubstituteCount
	if subCount <= 0 {
		subCount = defaultSubstituteCount
	}

	firstMonday := mondayOf(start)
	now := firstMonday
	if opts.Now != "" {
		if parsed, perr := time.Parse("2006-01-02", opts.Now); perr == nil {
			now = dateOnly(parsed)
		}
	}

	// Enumerate target Mondays, skipping those already covered.
	covered := make(map[string]bool)
	for _, r := range opts.ExistingRosters {
		for _, w := range r.Assignments {
			covered[dateOnly(w.WeekStart).Format("2006-01-02")] = true
		}
	}

	var warnings []string
	var mondays []time.Time
	for i := 0; i < opts.Weeks; i++ {
		m := firstMonday.AddDate(0, 0, 7*i)
		if covered[m.Format("2006-01-02")] {
			warnings = append(warnings, fmt.Sprintf("week %s already covered by an existing roster, skipping", m.Format("2006-01-02")))
			continue
		}
		mondays = append(mondays, m)
	}
	if len(mondays) == 0 {
		return nil, fmt.Errorf("%w: %d requested weeks from %s", ErrAllWeeksCovered, opts.Weeks, firstMonday.Format("2006-01-02"))
	}

	participants := opts.Participants
	byID := make(map[string]*Participant, len(participants))
	for i := range participants {
		byID[participants[i].ID] = &participants[i]
	}

	anyActive := false
	for i := range participants {
		if participants[i].ActiveOn(firstMonday) {
			anyActive = true
			break
		}
	}
	if !anyActive {
		return nil, fmt.Errorf("%w on %s", ErrNoActiveParticipants, firstMonday.Format("2006-01-02"))
	}

	acc := newAccumulator(participants, opts.ExistingRosters)
	rng := NewMulberry32(opts.Seed)

	run := &generationRun{
		engine:       e,
		acc:          acc,
		rng:          rng,
		byID:         byID,
		participants: participants,
		teamSize:     teamSize,
		subCount:     subCount,
		opts:         opts,
		now:          now,
		hasHistory:   len(opts.ExistingRosters) > 0,
		actions:      e.carryActions(),
		lastEntropy:  1.0,
	}

	var assignments []WeekAssignment
	var prev *WeekAssignment
	for _, w := range mondays {
		wa, wwarns := run.generateWeek(w, prev)
		warnings = append(warnings, wwarns...)
		if wa == nil {
			continue
		}
		assignments = append(assignments, *wa)
		prev = wa
		e.weeksDone.Add(1)
	}

	if run.nonFiniteCount > 0 {
		warnings = append(warnings, fmt.Sprintf("internal non-finite values clamped (%d occurrences)", run.nonFiniteCount))
	}

	metrics := e.postflight(run, mondays[len(mondays)-1], &warnings)

	roster := Roster{
		ID:          fmt.Sprintf("r%08x-%s", opts.Seed, mondays[0].Format("20060102")),
		StartDate:   mondays[0],
		Weeks:       len(assignments),
		CreatedAt:   now,
		Assignments: assignments,
	}

	return &Result{Roster: roster, Warnings: warnings, Metrics: metrics}, nil
}

// generationRun holds the per-call mutable state of the per-week loop.
type generationRun struct {
	engine       *Engine
	acc          *accumulator
	rng          *Mulberry32
	byID         map[string]*Participant
	participants []Participant
	teamSize     int
	subCount     int
	opts         Options
	now          time.Time
	hasHistory   bool

	actions        map[string]*activeAction
	recentMain     [][]string // most recent first
	lastEntropy    float64
	lastVariance   float64
	nonFiniteCount int
	firstWeekDone  bool
}

// carryActions converts the engine's stored corrective actions into the
// per-run application map.
func (e *Engine) carryActions() map[string]*activeAction {
	out := make(map[string]*activeAction)
	if !e.flags.UseConstraintChecking {
		return out
	}
	for _, a := range e.pendingActions {
		if a.DurationWeeks <= 0 {
			continue
		}
		out[a.ParticipantID] = &activeAction{
			kind:       a.Kind,
			multiplier: 1 + a.Magnitude,
			weeksLeft:  a.DurationWeeks,
		}
	}
	return out
}

// generateWeek runs one iteration of the per-week loop: eligibility,
// exclusion, scoring, selection, mentor coverage, commit. Returns nil when
// the week has no candidates at all.
func (r *generationRun) generateWeek(w time.Time, prev *WeekAssignment) (*WeekAssignment, []string) {
	var warnings []string

	// Eligibility.
	var eligible []*Participant
	for i := range r.participants {
		p := &r.participants[i]
		if p.ActiveOn(w) {
			eligible = append(eligible, p)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	if len(eligible) == 0 {
		warnings = append(warnings, fmt.Sprintf("week %s: no eligible participants, skipping", w.Format("2006-01-02")))
		return nil, warnings
	}
	for _, p := range eligible {
		r.acc.markEligible(p.ID, w)
	}

	// Seed tracker states for newly seen participants.
	if r.engine.flags.UseBayesianUpdates {
		warnings = append(warnings, r.seedTrackerStates(eligible, w)...)
	}

	// Exclusion filter.
	excluded := make(map[string]bool)
	if r.opts.EnforceNoConsecutive && prev != nil {
		for _, id := range prev.Main {
			excluded[id] = true
		}
		if len(eligible) >= wideExclusionPoolSize {
			for _, id := range prev.Substitutes {
				excluded[id] = true
			}
		}
	}

	candidatesOf := func(skip map[string]bool) []*candidate {
		var out []*candidate
		for _, p := range eligible {
			if skip[p.ID] {
				continue
			}
			fe, _ := r.acc.firstEligibleDate(p.ID)
			out = append(out, &candidate{
				id:       p.ID,
				daysPool: daysInPool(p, fe, w),
				total:    r.acc.totalCount(p.ID),
			})
		}
		return out
	}

	cands := candidatesOf(excluded)
	if len(cands) < r.teamSize {
		if len(excluded) > 0 {
			warnings = append(warnings, fmt.Sprintf("week %s: only %d candidates after no-consecutive filter, relaxing", w.Format("2006-01-02"), len(cands)))
		}
		cands = candidatesOf(nil)
	}
	if len(cands) == 0 {
		warnings = append(warnings, fmt.Sprintf("week %s: no candidates, skipping", w.Format("2006-01-02")))
		return nil, warnings
	}

	// Priority.
	scoreCandidates(r.engine.cfg, r.engine.flags.UsePenalizedPriority, cands, r.rng)
	r.applyActions(cands)
	r.clampNonFinite(cands)
	r.lastVariance = rateVariance(cands)

	// Selection.
	prevMain := make(map[string]bool)
	if prev != nil {
		for _, id := range prev.Main {
			prevMain[id] = true
		}
	}
	mainIdx, subIdx, probs := r.selectTeam(cands, prevMain)

	main := make([]string, 0, len(mainIdx))
	priorities := make([]float64, 0, len(mainIdx))
	for _, i := range mainIdx {
		main = append(main, cands[i].id)
		priorities = append(priorities, cands[i].priority)
	}
	subs := make([]string, 0, len(subIdx))
	for _, i := range subIdx {
		subs = append(subs, cands[i].id)
	}
	if len(main) < r.teamSize {
		warnings = append(warnings, fmt.Sprintf("week %s: only %d of %d main slots filled", w.Format("2006-01-02"), len(main), r.teamSize))
	}

	// Mentor rule.
	if r.opts.RequireMentor {
		var mw []string
		main, subs, priorities, mw = r.ensureMentor(w, main, subs, priorities, cands, eligible, prev)
		warnings = append(warnings, mw...)
	}

	// Commit.
	r.acc.recordAssignment(main)
	if r.engine.flags.UseBayesianUpdates {
		ideal := meanRate(cands)
		for _, p := range eligible {
			r.engine.tracker.Update(p.ID, containsID(main, p.ID), 7, ideal, w)
		}
	}
	r.lastEntropy = normalizedEntropy(probs)
	r.pushRecent(main)
	r.decayActions()
	r.firstWeekDone = true

	hasMentor := false
	for _, id := range main {
		if isExperienced(r.engine.cfg, r.byID[id], w, r.acc.historicalCount(id)) {
			hasMentor = true
			break
		}
	}

	return &WeekAssignment{
		WeekStart:      w,
		Main:           main,
		Substitutes:    subs,
		PriorityScores: priorities,
		HasMentor:      hasMentor,
	}, warnings
}

// seedTrackerStates initialises Bayesian states for eligible participants
// the tracker has never seen. With history present, a joiner starts at the
// pool-average rate with doubled variance; otherwise the empirical rate.
func (r *generationRun) seedTrackerStates(eligible []*Participant, w time.Time) []string {
	var warnings []string
	for _, p := range eligible {
		if r.engine.tracker.Has(p.ID) {
			continue
		}
		if r.hasHistory && r.acc.historicalCount(p.ID) == 0 {
			avg := r.poolAverageRate(eligible, w)
			r.engine.tracker.InitializeJoiner(p.ID, avg, w)
			if r.firstWeekDone {
				warnings = append(warnings, fmt.Sprintf("week %s: participant %s entered mid-run, seeded at pool-average rate", w.Format("2006-01-02"), p.ID))
			}
			continue
		}
		fe, _ := r.acc.firstEligibleDate(p.ID)
		pool := daysInPool(p, fe, w)
		rate := 0.0
		if pool > 0 {
			rate = float64(r.acc.totalCount(p.ID)) / (float64(pool) / 7.0)
		}
		r.engine.tracker.Initialize(p.ID, rate, w)
	}
	return warnings
}

// poolAverageRate is the mean empirical rate over the given participants.
func (r *generationRun) poolAverageRate(pool []*Participant, w time.Time) float64 {
	sum, n := 0.0, 0
	for _, p := range pool {
		fe, ok := r.acc.firstEligibleDate(p.ID)
		if !ok {
			continue
		}
		days := daysInPool(p, fe, w)
		if days <= 0 {
			continue
		}
		sum += float64(r.acc.totalCount(p.ID)) / (float64(days) / 7.0)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// applyActions multiplies priorities by the active corrective-action
// factors: boosts scale up, penalties scale down.
func (r *generationRun) applyActions(cands []*candidate) {
	if len(r.actions) == 0 {
		return
	}
	for _, c := range cands {
		a, ok := r.actions[c.id]
		if !ok || a.weeksLeft <= 0 {
			continue
		}
		switch a.kind {
		case ActionBoost, ActionMandatory:
			c.priority *= a.multiplier
		case ActionPenalty:
			c.priority /= a.multiplier
		}
	}
}

// decayActions counts one week off every active corrective action.
func (r *generationRun) decayActions() {
	for id, a := range r.actions {
		a.weeksLeft--
		if a.weeksLeft <= 0 {
			delete(r.actions, id)
		}
	}
}

// clampNonFinite replaces non-finite priorities with zero and counts the
// occurrences for the per-call warning.
func (r *generationRun) clampNonFinite(cands []*candidate) {
	for _, c := range cands {
		if math.IsNaN(c.priority) || math.IsInf(c.priority, 0) {
			c.priority = 0
			r.nonFiniteCount++
		}
	}
}

// selectTeam picks main and substitute indices from the scored candidates.
// The greedy path takes the top priorities directly, preferring candidates
// who were not on last week's team when priorities tie; the softmax path
// samples from the temperature-scaled distribution without replacement.
// The returned probability vector feeds the entropy diagnostics.
func (r *generationRun) selectTeam(cands []*candidate, prevMain map[string]bool) (mainIdx, subIdx []int, probs []float64) {
	priorities := make([]float64, len(cands))
	for i, c := range cands {
		priorities[i] = c.priority
	}

	if r.engine.flags.UseSoftmaxSelection {
		applyDiversityPenalty(r.engine.cfg, cands, r.recentMain)
		for i, c := range cands {
			priorities[i] = c.priority
		}
		temp := adaptiveTemperature(r.engine.cfg, r.lastVariance,
			r.engine.monitor.ConvergenceRate(convergenceWindow), r.lastEntropy)
		probs = softmax(priorities, temp)
		picked := sampleWithoutReplacement(probs, r.teamSize+r.subCount, r.rng)
		if len(picked) > r.teamSize {
			return picked[:r.teamSize], picked[r.teamSize:], probs
		}
		return picked, nil, probs
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := cands[order[a]], cands[order[b]]
		if math.Abs(ca.priority-cb.priority) > tieEpsilon {
			return ca.priority > cb.priority
		}
		// Tied: whoever sat out last week goes first.
		if prevMain[ca.id] != prevMain[cb.id] {
			return !prevMain[ca.id]
		}
		return ca.priority > cb.priority
	})
	n := r.teamSize
	if n > len(order) {
		n = len(order)
	}
	m := r.subCount
	if n+m > len(order) {
		m = len(order) - n
	}
	probs = softmax(priorities, 1.0)
	return order[:n], order[n : n+m], probs
}

// ensureMentor guarantees at least one experienced member on the main team
// when possible. The highest-priority experienced candidate replaces the
// lowest-priority non-experienced main member. Candidates are searched in
// widening circles: the week's candidate set first, then the rest of the
// eligible pool (preferring those not on last week's team). Equal-priority
// ties are broken by the PRNG.
func (r *generationRun) ensureMentor(w time.Time, main, subs []string, priorities []float64,
	cands []*candidate, eligible []*Participant, prev *WeekAssignment) ([]string, []string, []float64, []string) {

	experienced := func(id string) bool {
		return isExperienced(r.engine.cfg, r.byID[id], w, r.acc.historicalCount(id))
	}
	for _, id := range main {
		if experienced(id) {
			return main, subs, priorities, nil
		}
	}

	priorityOf := make(map[string]float64, len(cands))
	for _, c := range cands {
		priorityOf[c.id] = c.priority
	}

	pick := func(pool []string) (string, bool) {
		best := ""
		bestPriority := math.Inf(-1)
		for _, id := range pool {
			if containsID(main, id) || !experienced(id) {
				continue
			}
			pr, ok := priorityOf[id]
			if !ok {
				pr = math.Inf(-1) // eligible but filtered out this week: last resort
			}
			switch {
			case best == "":
				best, bestPriority = id, pr
			case pr > bestPriority+tieEpsilon:
				best, bestPriority = id, pr
			case math.Abs(pr-bestPriority) <= tieEpsilon && r.rng.Float64() < 0.5:
				best, bestPriority = id, pr
			}
		}
		return best, best != ""
	}

	candidateIDs := make([]string, len(cands))
	for i, c := range cands {
		candidateIDs[i] = c.id
	}
	var eligibleIDs, eligibleFresh []string
	for _, p := range eligible {
		eligibleIDs = append(eligibleIDs, p.ID)
		if prev == nil || !containsID(prev.Main, p.ID) {
			eligibleFresh = append(eligibleFresh, p.ID)
		}
	}

	mentor, ok := pick(candidateIDs)
	if !ok {
		mentor, ok = pick(eligibleFresh)
	}
	if !ok {
		mentor, ok = pick(eligibleIDs)
	}
	if !ok {
		return main, subs, priorities, []string{fmt.Sprintf("week %s: no mentor available", w.Format("2006-01-02"))}
	}

	// Replace the lowest-priority non-experienced main member.
	lowest := -1
	for i, id := range main {
		if experienced(id) {
			continue
		}
		if lowest < 0 || priorities[i] < priorities[lowest] {
			lowest = i
		}
	}
	if lowest < 0 {
		return main, subs, priorities, nil
	}
	demoted := main[lowest]
	main[lowest] = mentor
	if pr, ok := priorityOf[mentor]; ok {
		priorities[lowest] = pr
	}

	// Keep main and substitutes disjoint: if the mentor was a substitute,
	// the demoted member takes their slot.
	for i, id := range subs {
		if id == mentor {
			subs[i] = demoted
			break
		}
	}
	return main, subs, priorities, nil
}

// pushRecent prepends the week's main selection to the diversity window.
func (r *generationRun) pushRecent(main []string) {
	set := make([]string, len(main))
	copy(set, main)
	r.recentMain = append([][]string{set}, r.recentMain...)
	if len(r.recentMain) > r.engine.cfg.DiversityWindow {
		r.recentMain = r.recentMain[:r.engine.cfg.DiversityWindow]
	}
}

// postflight runs the constraint monitor over the pool as of the final
// generated week and assembles the fairness metrics.
func (e *Engine) postflight(run *generationRun, lastWeek time.Time, warnings *[]string) FairnessMetrics {
	var obs []rateObservation
	for i := range run.participants {
		p := &run.participants[i]
		if !p.ActiveOn(lastWeek) {
			continue
		}
		fe, ok := run.acc.firstEligibleDate(p.ID)
		if !ok {
			continue
		}
		days := daysInPool(p, fe, lastWeek)
		rate := 0.0
		if days > 0 {
			rate = float64(run.acc.totalCount(p.ID)) / (float64(days) / 7.0)
		}
		obs = append(obs, rateObservation{id: p.ID, rate: rate, daysPool: days})
	}
	avg := 0.0
	for _, o := range obs {
		avg += o.rate
	}
	if len(obs) > 0 {
		avg /= float64(len(obs))
	}
	for i := range obs {
		// Cumulative deficit: how many selections behind (or ahead of) the
		// pool-average pace this participant is.
		obs[i].deficit = avg*float64(obs[i].daysPool)/7.0 - float64(run.acc.totalCount(obs[i].id))
	}

	stats, violations, actions := e.monitor.Check(obs, run.now)
	if e.flags.UseConstraintChecking {
		e.pendingActions = actions
		for _, v := range violations {
			*warnings = append(*warnings, fmt.Sprintf("fairness violation: %s severity %.2f", v.Kind, v.Severity))
		}
	}

	return FairnessMetrics{
		Mean:              stats.mean,
		Variance:          stats.variance,
		StdDev:            stats.stdDev,
		CV:                stats.cv,
		Gini:              stats.gini,
		Theil:             stats.theil,
		MaxDeficit:        stats.maxDeficit,
		MinDeficit:        stats.minDeficit,
		NormalizedEntropy: run.lastEntropy,
		ConvergenceRate:   e.monitor.ConvergenceRate(convergenceWindow),
		Violations:        violations,
		CorrectiveActions: actions,
	}
}

// rateVariance is the plain variance of candidate rates, feeding the
// adaptive temperature.
func rateVariance(cands []*candidate) float64 {
	if len(cands) == 0 {
		return 0
	}
	m := meanRate(cands)
	sum := 0.0
	for _, c := range cands {
		d := c.rate - m
		sum += d * d
	}
	return sum / float64(len(cands))
}

func meanRate(cands []*candidate) float64 {
	if len(cands) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cands {
		sum += c.rate
	}
	return sum / float64(len(cands))
}
