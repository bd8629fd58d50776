package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Doc is one corpus document. Class labels are derived purely from
// path position: the parent directory names the language, the
// grandparent the domain. Content is read later, during a pass, and
// never retained.
type Doc struct {
	Path   string
	Lang   string
	Domain string
}

// Walk lists every file under root with its path-derived labels.
// The returned order is the walk order; a document's position in the
// slice is its stable global id for the whole run.
func Walk(root string) ([]Doc, error) {
	var docs []Doc
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		dir := filepath.Dir(path)
		docs = append(docs, Doc{
			Path:   path,
			Lang:   filepath.Base(dir),
			Domain: filepath.Base(filepath.Dir(dir)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	return docs, nil
}

// Span is a contiguous run of document ids, Start inclusive and End
// exclusive
type Span struct {
	Start int
	End   int
}

// Len returns the number of documents in the span
func (s Span) Len() int {
	return s.End - s.Start
}

// ChunkSize picks the dispatch chunk size for n documents over the
// given worker count: n/(jobs*2) capped at 100, floor 1
func ChunkSize(n, jobs int) int {
	size := n / (jobs * 2)
	if size > 100 {
		size = 100
	}
	if size < 1 {
		size = 1
	}
	return size
}

// Chunks splits 0..n-1 into contiguous spans of at most size
// documents. A worker resolves a document's global id as span.Start
// plus its position within the span.
func Chunks(n, size int) []Span {
	if size < 1 {
		size = 1
	}
	var spans []Span
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}
