package scoring

import (
	"math"
	"sort"
)

// PercentileScores rank-scores one metric across areas. The input holds
// only areas that have data for the metric; areas absent from it never
// appear in the output.
//
// Zero raw values are peeled off first per the policy: best means exactly
// 100, worst means exactly 0, no-data means excluded. The remaining
// values are sorted worst-first and scored
//
//	100 × rank_from_worst / count_ranked
//
// with equal raw values sharing a rank, so the result is independent of
// input order.
func PercentileScores(values map[string]float64, policy MetricPolicy) map[string]float64 {
	scores := make(map[string]float64, len(values))

	type obs struct {
		id    string
		value float64
	}
	ranked := make([]obs, 0, len(values))
	for id, v := range values {
		if v == 0 {
			switch policy.ZeroMeans {
			case ZeroBest:
				scores[id] = 100
			case ZeroWorst:
				scores[id] = 0
			}
			continue
		}
		ranked = append(ranked, obs{id: id, value: v})
	}
	if len(ranked) == 0 {
		return scores
	}

	// Worst first. The id tiebreak only stabilizes iteration; tied values
	// share a rank below.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].value != ranked[j].value {
			if policy.Direction == LowerIsBetter {
				return ranked[i].value > ranked[j].value
			}
			return ranked[i].value < ranked[j].value
		}
		return ranked[i].id < ranked[j].id
	})

	n := float64(len(ranked))
	rank := 0
	for i, o := range ranked {
		if i == 0 || o.value != ranked[i-1].value {
			rank = i + 1
		}
		scores[o.id] = round2(100 * float64(rank) / n)
	}
	return scores
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
