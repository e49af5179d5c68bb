package engine

import "time"

// FairnessReport computes the fairness metrics of the pool as of evalDate,
// from the persisted rosters alone. It is read-only: no tracker state, no
// variance history, and no corrective actions are modified.
func (e *Engine) FairnessReport(participants []Participant, rosters []Roster, evalDate time.Time) FairnessMetrics {
	at := dateOnly(evalDate)
	acc := newAccumulator(participants, rosters)

	var obs []rateObservation
	for i := range participants {
		p := &participants[i]
		if !p.ActiveOn(at) {
			continue
		}
		fe, ok := acc.firstEligibleDate(p.ID)
		if !ok {
			// Never exposed to a selection round: no pool time, no rate.
			continue
		}
		days := daysInPool(p, fe, at)
		rate := 0.0
		if days > 0 {
			rate = float64(acc.totalCount(p.ID)) / (float64(days) / 7.0)
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
		obs[i].deficit = avg*float64(obs[i].daysPool)/7.0 - float64(acc.totalCount(obs[i].id))
	}

	stats, violations, actions := evaluateConstraints(e.cfg, obs, at)

	return FairnessMetrics{
		Mean:              stats.mean,
		Variance:          stats.variance,
		StdDev:            stats.stdDev,
		CV:                stats.cv,
		Gini:              stats.gini,
		Theil:             stats.theil,
		MaxDeficit:        stats.maxDeficit,
		MinDeficit:        stats.minDeficit,
		ConvergenceRate:   e.monitor.ConvergenceRate(convergenceWindow),
		Violations:        violations,
		CorrectiveActions: actions,
	}
}
