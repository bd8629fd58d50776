package infogain

import "gonum.org/v1/gonum/mat"

// Gain computes the information gain of each feature with respect to
// a class map: the entropy of the overall class distribution minus
// the weighted entropies of the {feature-absent, feature-present}
// split, weights being partition size fractions.
//
// presence is a documents-by-features 0/1 matrix, cm a
// documents-by-classes one-hot matrix. The absent band's class
// counts are derived as classTotals - presentCounts rather than
// materializing the negated presence matrix.
func Gain(presence, cm *mat.Dense) []float64 {
	numInst, numFeat := presence.Dims()
	_, numClasses := cm.Dims()

	classTotals := colSums(cm)
	overall := Entropy(classTotals)

	var present mat.Dense
	present.Mul(presence.T(), cm)

	presentPerFeat := colSums(presence)

	n := float64(numInst)
	gains := make([]float64, numFeat)
	absent := make([]float64, numClasses)
	for f := 0; f < numFeat; f++ {
		row := present.RawRowView(f)
		for c := range absent {
			absent[c] = classTotals[c] - row[c]
		}
		wPresent := presentPerFeat[f] / n
		wAbsent := (n - presentPerFeat[f]) / n
		gains[f] = overall - (wAbsent*Entropy(absent) + wPresent*Entropy(row))
	}
	return gains
}

// ClassCounts returns the features-by-classes matrix of how many
// documents of each class contain each feature
func ClassCounts(presence, cm *mat.Dense) *mat.Dense {
	var counts mat.Dense
	counts.Mul(presence.T(), cm)
	return &counts
}

func colSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sums := make([]float64, cols)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c, x := range row {
			sums[c] += x
		}
	}
	return sums
}
