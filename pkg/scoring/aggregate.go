package scoring

// Aggregate computes the weighted mean of the present category scores.
// Absent categories count in neither the numerator nor the divisor. A nil
// weights map means equal weights; a category missing from a non-nil map has
// weight 0. With nothing to average the composite is undefined and ok is
// false.
func Aggregate(scores CategoryScores, weights Weights) (float64, bool) {
	if weights == nil {
		weights = EqualWeights()
	}

	var sum, total float64
	// Fixed order keeps floating point summation deterministic.
	for _, c := range Categories() {
		score, ok := scores[c]
		if !ok {
			continue
		}
		w := weights[c]
		if w <= 0 {
			continue
		}
		sum += w * score
		total += w
	}
	if total == 0 {
		return 0, false
	}
	return sum / total, true
}
