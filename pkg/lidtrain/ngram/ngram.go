package ngram

// Extractor produces byte n-grams of every order from 1 up to a
// fixed maximum. Features are contiguous byte subsequences, so a
// document of length L yields roughly L*maxOrder grams.
type Extractor struct {
	maxOrder int
}

// NewExtractor creates an extractor for orders 1..maxOrder
func NewExtractor(maxOrder int) *Extractor {
	if maxOrder < 1 {
		maxOrder = 1
	}
	return &Extractor{maxOrder: maxOrder}
}

// MaxOrder returns the largest n-gram order produced
func (e *Extractor) MaxOrder() int {
	return e.maxOrder
}

// Set returns the set of distinct n-grams present in data, for all
// orders 1..maxOrder. Presence only; occurrence counts are not kept.
func (e *Extractor) Set(data []byte) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i < len(data); i++ {
		max := e.maxOrder
		if rem := len(data) - i; rem < max {
			max = rem
		}
		for n := 1; n <= max; n++ {
			set[string(data[i:i+n])] = struct{}{}
		}
	}
	return set
}
