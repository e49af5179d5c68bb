package engine

import (
	"math"
	"testing"
)

func TestScoreCandidatesRateDeficit(t *testing.T) {
	cfg := DefaultConfig()
	// Two members, same tenure, different counts: the under-selected one
	// must end up with the higher priority.
	cands := []*candidate{
		{id: "a", daysPool: 70, total: 10},
		{id: "b", daysPool: 70, total: 6},
	}
	scoreCandidates(cfg, true, cands, NewMulberry32(1))

	byID := map[string]*candidate{}
	for _, c := range cands {
		byID[c.id] = c
	}
	if byID["b"].priority <= byID["a"].priority {
		t.Errorf("under-selected b (%v) should outrank a (%v)", byID["b"].priority, byID["a"].priority)
	}
	if byID["a"].deficit >= 0 {
		t.Errorf("over-selected a should carry a negative deficit, got %v", byID["a"].deficit)
	}
	if byID["b"].deficit <= 0 {
		t.Errorf("under-selected b should carry a positive deficit, got %v", byID["b"].deficit)
	}
}

func TestNoCatchUpBurden(t *testing.T) {
	cfg := DefaultConfig()

	// A newcomer at rate parity with veterans must not accumulate priority
	// with growing tenure: priority converges on rate, not on count.
	priorityAt := func(daysPool, total int, otherDays, otherTotal int) float64 {
		cands := []*candidate{
			{id: "new", daysPool: daysPool, total: total},
			{id: "vet1", daysPool: otherDays, total: otherTotal},
			{id: "vet2", daysPool: otherDays, total: otherTotal},
		}
		scoreCandidates(cfg, true, cands, NewMulberry32(9))
		for _, c := range cands {
			if c.id == "new" {
				return c.priority
			}
		}
		t.Fatal("newcomer missing")
		return 0
	}

	// Newcomer with 1 selection in 1 week vs veterans at the same weekly
	// rate: deficit is ~zero, so priority must be ~zero, not growing.
	early := priorityAt(7, 1, 350, 50)
	later := priorityAt(28, 4, 371, 53)
	if math.Abs(early) > 1e-3 {
		t.Errorf("newcomer at rate parity has priority %v, want ~0", early)
	}
	if math.Abs(later) > math.Abs(early)+1e-3 {
		t.Errorf("priority grew with tenure at constant rate: early %v later %v", early, later)
	}
}

func TestPenalizedPrioritySharpens(t *testing.T) {
	cfg := DefaultConfig()
	small := penalizedPriority(cfg, 0.01, 1)
	large := penalizedPriority(cfg, 1.0, 1)

	// The cubic term is negligible at small deficits and material at
	// large ones: the large/small ratio must exceed the linear ratio.
	if large/small <= 100 {
		t.Errorf("expected superlinear sharpening, got ratio %v", large/small)
	}

	// Antisymmetric in the deficit.
	if got := penalizedPriority(cfg, -1.0, 1); math.Abs(got+large) > 1e-12 {
		t.Errorf("expected odd symmetry: f(-1)=%v, -f(1)=%v", got, -large)
	}
}

func TestTenureDampensPenalty(t *testing.T) {
	cfg := DefaultConfig()
	// Same deficit-per-day, longer tenure: the cubic boost contribution
	// shrinks relative to base for the veteran.
	newcomer := penalizedPriority(cfg, 0.5, 1)
	veteran := penalizedPriority(cfg, 0.5*365, 365)

	newBoost := newcomer - 0.5
	vetBoost := veteran - 0.5
	if vetBoost >= newBoost {
		t.Errorf("veteran boost %v should be smaller than newcomer boost %v", vetBoost, newBoost)
	}
}

func TestSimplePriorityVariant(t *testing.T) {
	cfg := DefaultConfig()
	cands := []*candidate{
		{id: "a", daysPool: 14, total: 0},
		{id: "b", daysPool: 14, total: 4},
	}
	scoreCandidates(cfg, false, cands, NewMulberry32(2))

	// rate(a)=0, rate(b)=2, avg=1: deficit(a)=+1, deficit(b)=-1,
	// priority = deficit/(weeksPool+1) = ±1/3.
	for _, c := range cands {
		want := 1.0 / 3.0
		if c.id == "b" {
			want = -1.0 / 3.0
		}
		if math.Abs(c.priority-want) > 1e-3 {
			t.Errorf("%s priority = %v, want %v", c.id, c.priority, want)
		}
	}
}

func TestTieBreakJitterIsTiny(t *testing.T) {
	cfg := DefaultConfig()
	cands := []*candidate{
		{id: "a", daysPool: 7, total: 1},
		{id: "b", daysPool: 7, total: 1},
	}
	scoreCandidates(cfg, true, cands, NewMulberry32(3))
	if d := math.Abs(cands[0].priority - cands[1].priority); d >= tieEpsilon {
		t.Errorf("tie jitter %v must stay below epsilon %v", d, tieEpsilon)
	}
}
