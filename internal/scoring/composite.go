package scoring

// Compose returns the weighted mean of the scores that are present,
// renormalizing weights over present keys. A key absent from scores is
// missing data and never counts as zero. Nil when nothing is present.
func Compose(scores map[string]float64, weights map[string]float64) *float64 {
	var sum, weightSum float64
	for key, w := range weights {
		if w <= 0 {
			continue
		}
		score, ok := scores[key]
		if !ok {
			continue
		}
		sum += score * w
		weightSum += w
	}
	if weightSum == 0 {
		return nil
	}
	v := round2(sum / weightSum)
	return &v
}
