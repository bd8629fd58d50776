package corpus

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ClassMap is a one-hot documents-by-classes membership matrix for
// one classification axis, with class names in column order. Built
// once before any parallel pass and read-only afterwards.
type ClassMap struct {
	M     *mat.Dense
	Names []string
}

// NumClasses returns the number of classes on this axis
func (c ClassMap) NumClasses() int {
	return len(c.Names)
}

// LangMap builds the language-axis class map. Classes are sorted by
// name, so column order is stable across runs.
func LangMap(docs []Doc) ClassMap {
	return buildMap(docs, func(d Doc) string { return d.Lang })
}

// DomainMap builds the domain-axis class map
func DomainMap(docs []Doc) ClassMap {
	return buildMap(docs, func(d Doc) string { return d.Domain })
}

func buildMap(docs []Doc, label func(Doc) string) ClassMap {
	seen := make(map[string]struct{})
	for _, d := range docs {
		seen[label(d)] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	m := mat.NewDense(len(docs), max(len(names), 1), nil)
	for docID, d := range docs {
		m.Set(docID, index[label(d)], 1)
	}
	return ClassMap{M: m, Names: names}
}

// Binarize collapses a class map into {not class i, class i}, used
// to compute per-language gain against everything else
func (c ClassMap) Binarize(i int) *mat.Dense {
	rows, _ := c.M.Dims()
	b := mat.NewDense(rows, 2, nil)
	for r := 0; r < rows; r++ {
		if c.M.At(r, i) != 0 {
			b.Set(r, 1, 1)
		} else {
			b.Set(r, 0, 1)
		}
	}
	return b
}
