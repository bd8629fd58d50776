package infogain

import "sort"

// Weight is one scored term. LangDF is the number of documents of
// the language under selection that contain the term; it breaks ties
// between equally scoring terms in favor of terms attested in the
// language.
type Weight struct {
	Term   string
	Score  float64
	LangDF int64
}

// Top returns the k highest-scoring weights. Order is score
// descending, then language document frequency descending, then term
// ascending, so the cut is reproducible within and across runs.
func Top(weights []Weight, k int) []Weight {
	sorted := make([]Weight, len(weights))
	copy(sorted, weights)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].LangDF != sorted[j].LangDF {
			return sorted[i].LangDF > sorted[j].LangDF
		}
		return sorted[i].Term < sorted[j].Term
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// CandidateCut keeps, within each n-gram order, the topPerOrder
// terms by global document frequency. This bounds the number of
// features the expensive gain computation sees. Ties are broken by
// term so the candidate set is stable.
func CandidateCut(df map[string]int64, maxOrder, topPerOrder int) []string {
	type termCount struct {
		term  string
		count int64
	}
	byOrder := make([][]termCount, maxOrder+1)
	for term, count := range df {
		order := len(term)
		if order >= 1 && order <= maxOrder {
			byOrder[order] = append(byOrder[order], termCount{term, count})
		}
	}

	var out []string
	for order := 1; order <= maxOrder; order++ {
		terms := byOrder[order]
		sort.Slice(terms, func(i, j int) bool {
			if terms[i].count != terms[j].count {
				return terms[i].count > terms[j].count
			}
			return terms[i].term < terms[j].term
		})
		n := topPerOrder
		if n > len(terms) {
			n = len(terms)
		}
		for _, tc := range terms[:n] {
			out = append(out, tc.term)
		}
	}
	sort.Strings(out)
	return out
}

// Union collapses per-language selections into the final sorted
// feature set
func Union(selections [][]Weight) []string {
	set := make(map[string]struct{})
	for _, sel := range selections {
		for _, w := range sel {
			set[w.Term] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for term := range set {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}
