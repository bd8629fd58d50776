package nbayes

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Estimate derives smoothed log term-probabilities from a
// features-by-classes count matrix, with add-one smoothing:
//
//	log P(term|class) = log(1 + count) - log(numFeatures + sum_term count)
//
// The result is flat and feature-major: entry f*numClasses+c is
// log P(term f | class c). Pure function of the counts, so the same
// matrix always reproduces the same parameters.
func Estimate(counts *mat.Dense) []float64 {
	numFeat, numClasses := counts.Dims()

	norm := make([]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		var sum float64
		for f := 0; f < numFeat; f++ {
			sum += counts.At(f, c)
		}
		norm[c] = math.Log(float64(numFeat) + sum)
	}

	ptc := make([]float64, numFeat*numClasses)
	for f := 0; f < numFeat; f++ {
		row := counts.RawRowView(f)
		for c, count := range row {
			ptc[f*numClasses+c] = math.Log(1+count) - norm[c]
		}
	}
	return ptc
}

// ClassPriors derives unnormalized log class priors from a class
// map: log of the per-class document counts. Relative ranking is all
// downstream classification needs.
func ClassPriors(cm *mat.Dense) []float64 {
	numInst, numClasses := cm.Dims()
	pc := make([]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		var sum float64
		for r := 0; r < numInst; r++ {
			sum += cm.At(r, c)
		}
		pc[c] = math.Log(sum)
	}
	return pc
}
