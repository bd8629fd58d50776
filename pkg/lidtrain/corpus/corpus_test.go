package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	return root
}

func TestWalkDerivesLabels(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"news/en/doc1": "hello",
		"news/de/doc2": "hallo",
		"wiki/en/doc3": "again",
	})

	docs, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 docs, got %d", len(docs))
	}

	byName := make(map[string]Doc)
	for _, d := range docs {
		byName[filepath.Base(d.Path)] = d
	}
	if d := byName["doc1"]; d.Lang != "en" || d.Domain != "news" {
		t.Errorf("doc1 labels wrong: %+v", d)
	}
	if d := byName["doc2"]; d.Lang != "de" || d.Domain != "news" {
		t.Errorf("doc2 labels wrong: %+v", d)
	}
	if d := byName["doc3"]; d.Lang != "en" || d.Domain != "wiki" {
		t.Errorf("doc3 labels wrong: %+v", d)
	}
}

func TestWalkOrderIsStable(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"news/de/a": "", "news/de/b": "", "news/en/c": "",
	})

	first, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	second, err := Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Doc %d differs between walks: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestClassMaps(t *testing.T) {
	docs := []Doc{
		{Path: "p0", Lang: "en", Domain: "news"},
		{Path: "p1", Lang: "de", Domain: "news"},
		{Path: "p2", Lang: "en", Domain: "wiki"},
	}

	langs := LangMap(docs)
	if len(langs.Names) != 2 || langs.Names[0] != "de" || langs.Names[1] != "en" {
		t.Fatalf("Language names wrong: %v", langs.Names)
	}

	// One-hot rows
	want := [][]float64{{0, 1}, {1, 0}, {0, 1}}
	for r := range want {
		for c := range want[r] {
			if got := langs.M.At(r, c); got != want[r][c] {
				t.Errorf("langs[%d][%d] = %v, expected %v", r, c, got, want[r][c])
			}
		}
	}

	domains := DomainMap(docs)
	if len(domains.Names) != 2 || domains.Names[0] != "news" || domains.Names[1] != "wiki" {
		t.Fatalf("Domain names wrong: %v", domains.Names)
	}
}

func TestBinarize(t *testing.T) {
	docs := []Doc{
		{Path: "p0", Lang: "en"},
		{Path: "p1", Lang: "de"},
		{Path: "p2", Lang: "fr"},
	}
	langs := LangMap(docs) // de, en, fr

	b := langs.Binarize(1) // "en"
	want := [][]float64{{0, 1}, {1, 0}, {1, 0}}
	for r := range want {
		for c := range want[r] {
			if got := b.At(r, c); got != want[r][c] {
				t.Errorf("b[%d][%d] = %v, expected %v", r, c, got, want[r][c])
			}
		}
	}
}

func TestChunks(t *testing.T) {
	spans := Chunks(7, 3)
	want := []Span{{0, 3}, {3, 6}, {6, 7}}
	if len(spans) != len(want) {
		t.Fatalf("Expected %d spans, got %d", len(want), len(spans))
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("Span %d: expected %+v, got %+v", i, want[i], spans[i])
		}
	}

	// Global id = span.Start + local position, covering 0..n-1 once
	seen := make(map[int]bool)
	for _, s := range spans {
		for local := 0; local < s.Len(); local++ {
			seen[s.Start+local] = true
		}
	}
	if len(seen) != 7 {
		t.Errorf("Spans cover %d ids, expected 7", len(seen))
	}
}

func TestChunkSize(t *testing.T) {
	if got := ChunkSize(1000, 4); got != 100 {
		t.Errorf("ChunkSize(1000, 4) = %d, expected cap 100", got)
	}
	if got := ChunkSize(40, 4); got != 5 {
		t.Errorf("ChunkSize(40, 4) = %d, expected 5", got)
	}
	if got := ChunkSize(3, 8); got != 1 {
		t.Errorf("ChunkSize(3, 8) = %d, expected floor 1", got)
	}
}
