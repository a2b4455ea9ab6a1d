package stats

import (
	"sort"

	"github.com/verte-zerg/sprint/internal/model"
)

// WeakestFacts returns up to top facts with at least one miss, lowest
// accuracy first. top <= 0 returns all of them.
func WeakestFacts(aggs []model.FactAggregate, top int) []model.FactAggregate {
	candidates := make([]model.FactAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Incorrect > 0 {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := factAccuracy(candidates[i])
		aj := factAccuracy(candidates[j])
		if ai != aj {
			return ai < aj
		}
		if candidates[i].Incorrect != candidates[j].Incorrect {
			return candidates[i].Incorrect > candidates[j].Incorrect
		}
		if candidates[i].A != candidates[j].A {
			return candidates[i].A < candidates[j].A
		}
		return candidates[i].B < candidates[j].B
	})
	if top > 0 && top < len(candidates) {
		candidates = candidates[:top]
	}
	return candidates
}

func factAccuracy(agg model.FactAggregate) float64 {
	total := agg.Correct + agg.Incorrect
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}
