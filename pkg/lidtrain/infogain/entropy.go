package infogain

import "math"

// Entropy computes log(sum(v)) - sum(v*log(v))/sum(v) over a vector
// of non-negative counts. A vector summing to zero contributes 0,
// not NaN: a feature entirely confined to one partition must not
// poison the aggregate score with missing information from the
// other partition. Zero entries are skipped, as 0*log(0) carries no
// information.
func Entropy(v []float64) float64 {
	var sum, weighted float64
	for _, x := range v {
		if x > 0 {
			sum += x
			weighted += x * math.Log(x)
		}
	}
	if sum == 0 {
		return 0
	}
	return math.Log(sum) - weighted/sum
}
