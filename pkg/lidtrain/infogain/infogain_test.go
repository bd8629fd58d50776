package infogain

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestEntropyKnownValues(t *testing.T) {
	if got := Entropy([]float64{1, 1}); !almostEqual(got, math.Log(2)) {
		t.Errorf("Entropy([1,1]) = %v, expected log 2", got)
	}
	if got := Entropy([]float64{2, 2}); !almostEqual(got, math.Log(2)) {
		t.Errorf("Entropy([2,2]) = %v, expected log 2", got)
	}
	if got := Entropy([]float64{2}); !almostEqual(got, 0) {
		t.Errorf("Entropy([2]) = %v, expected 0", got)
	}
	if got := Entropy([]float64{1, 0}); !almostEqual(got, 0) {
		t.Errorf("Entropy([1,0]) = %v, expected 0", got)
	}
}

func TestEntropyZeroSumContributesZero(t *testing.T) {
	got := Entropy([]float64{0, 0, 0})
	if math.IsNaN(got) {
		t.Fatal("Entropy of zero-sum vector must not be NaN")
	}
	if got != 0 {
		t.Errorf("Entropy of zero-sum vector = %v, expected 0", got)
	}
}

func TestGainPerfectSeparator(t *testing.T) {
	// Two documents, two classes; feature 0 present only in doc 0,
	// feature 1 only in doc 1. Both split the classes perfectly.
	presence := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	cm := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})

	gains := Gain(presence, cm)
	for f, g := range gains {
		if !almostEqual(g, math.Log(2)) {
			t.Errorf("Feature %d gain = %v, expected log 2", f, g)
		}
	}
}

func TestGainSingleClassIsZero(t *testing.T) {
	presence := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	// One class covers everything: nothing to gain
	cm := mat.NewDense(2, 1, []float64{1, 1})

	gains := Gain(presence, cm)
	for f, g := range gains {
		if !almostEqual(g, 0) {
			t.Errorf("Feature %d gain = %v, expected 0", f, g)
		}
	}
}

func TestGainUninformativeFeature(t *testing.T) {
	// Feature present in every document tells us nothing
	presence := mat.NewDense(2, 1, []float64{1, 1})
	cm := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})

	gains := Gain(presence, cm)
	if !almostEqual(gains[0], 0) {
		t.Errorf("Uninformative feature gain = %v, expected 0", gains[0])
	}
}

func TestGainFeatureConfinedToOneBand(t *testing.T) {
	// Feature present everywhere: the absent band is empty, whose
	// entropy must contribute 0 rather than NaN
	presence := mat.NewDense(3, 1, []float64{1, 1, 1})
	cm := mat.NewDense(3, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
	})

	gains := Gain(presence, cm)
	if math.IsNaN(gains[0]) {
		t.Fatal("Gain must not be NaN when a band is empty")
	}
}

func TestClassCounts(t *testing.T) {
	presence := mat.NewDense(3, 2, []float64{
		1, 1,
		0, 1,
		1, 0,
	})
	cm := mat.NewDense(3, 2, []float64{
		1, 0,
		1, 0,
		0, 1,
	})

	counts := ClassCounts(presence, cm)
	want := [][]float64{{1, 1}, {2, 0}}
	for f := range want {
		for c := range want[f] {
			if got := counts.At(f, c); got != want[f][c] {
				t.Errorf("counts[%d][%d] = %v, expected %v", f, c, got, want[f][c])
			}
		}
	}
}

func TestTopOrdering(t *testing.T) {
	weights := []Weight{
		{Term: "b", Score: 1.0, LangDF: 0},
		{Term: "a", Score: 1.0, LangDF: 1},
		{Term: "c", Score: 2.0, LangDF: 0},
		{Term: "d", Score: 1.0, LangDF: 1},
	}

	top := Top(weights, 3)
	want := []string{"c", "a", "d"}
	for i := range want {
		if top[i].Term != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], top[i].Term)
		}
	}
}

func TestTopBeyondLength(t *testing.T) {
	top := Top([]Weight{{Term: "a", Score: 1}}, 5)
	if len(top) != 1 {
		t.Errorf("Expected 1 weight, got %d", len(top))
	}
}

func TestCandidateCutPerOrder(t *testing.T) {
	df := map[string]int64{
		"a": 5, "b": 3, "c": 1, // order 1
		"ab": 4, "bc": 4, "cd": 2, // order 2
	}

	got := CandidateCut(df, 2, 2)
	want := []string{"a", "ab", "b", "bc"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidate %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCandidateCutIgnoresHigherOrders(t *testing.T) {
	df := map[string]int64{"a": 1, "abc": 10}

	got := CandidateCut(df, 2, 10)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected only order<=2 candidates, got %v", got)
	}
}

func TestUnionCollapsesDuplicates(t *testing.T) {
	got := Union([][]Weight{
		{{Term: "a"}, {Term: "b"}},
		{{Term: "b"}, {Term: "c"}},
	})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
