package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lexlab/lidtrain/pkg/lidtrain/config"
	"github.com/lexlab/lidtrain/pkg/lidtrain/corpus"
	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
	"github.com/lexlab/lidtrain/pkg/lidtrain/nbayes"
)

// buildCorpus writes files under a temp root, keyed by
// domain/lang/name relative paths, and returns the walked documents.
func buildCorpus(t *testing.T, files map[string]string) []corpus.Doc {
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
	docs, err := corpus.Walk(root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	return docs
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.MaxOrder = 1
	cfg.DFTokens = 100
	cfg.FeatsPerLang = 1
	cfg.Buckets = 2
	cfg.FeatsPerBucket = 1
	cfg.Jobs = 1
	cfg.TempDir = t.TempDir()
	return cfg
}

func newPipeline(t *testing.T, cfg config.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

// twoDocs is the minimal two-language corpus: one document per
// language, disjoint unigrams.
func twoDocs(t *testing.T) []corpus.Doc {
	t.Helper()
	return buildCorpus(t, map[string]string{
		"news/A/one.txt": "aa",
		"news/B/one.txt": "bb",
	})
}

func TestSelectFeaturesTwoLanguages(t *testing.T) {
	p := newPipeline(t, testConfig(t))

	feats, err := p.SelectFeatures(context.Background(), twoDocs(t))
	if err != nil {
		t.Fatalf("SelectFeatures failed: %v", err)
	}
	want := []string{"a", "b"}
	if !reflect.DeepEqual(feats, want) {
		t.Errorf("Selected features = %q, expected %q", feats, want)
	}
}

func TestSelectFeaturesNoDocuments(t *testing.T) {
	p := newPipeline(t, testConfig(t))
	if _, err := p.SelectFeatures(context.Background(), nil); !errors.Is(err, internalerr.ErrNoDocuments) {
		t.Errorf("Expected ErrNoDocuments, got %v", err)
	}
}

// richDocs spreads four languages over two domains with enough
// documents to exercise chunking and bucket spread.
func richDocs(t *testing.T) []corpus.Doc {
	t.Helper()
	return buildCorpus(t, map[string]string{
		"news/en/1.txt": "the cat sat on the mat",
		"news/en/2.txt": "a cat and a dog",
		"news/fr/1.txt": "le chat noir dort",
		"news/fr/2.txt": "le chien et le chat",
		"wiki/en/1.txt": "the dog ran home",
		"wiki/fr/1.txt": "le chien gris court",
		"wiki/de/1.txt": "der hund lief heim",
		"wiki/de/2.txt": "die katze schlief",
	})
}

func TestSelectFeaturesPartitioningInvariance(t *testing.T) {
	base := testConfig(t)
	base.MaxOrder = 2
	base.FeatsPerLang = 5

	coarse := base
	coarse.Buckets = 1
	coarse.Jobs = 1
	coarse.ChunkSize = 8

	fine := base
	fine.Buckets = 7
	fine.Jobs = 4
	fine.ChunkSize = 1

	docs := richDocs(t)
	got1, err := newPipeline(t, coarse).SelectFeatures(context.Background(), docs)
	if err != nil {
		t.Fatalf("SelectFeatures (coarse) failed: %v", err)
	}
	got2, err := newPipeline(t, fine).SelectFeatures(context.Background(), docs)
	if err != nil {
		t.Fatalf("SelectFeatures (fine) failed: %v", err)
	}
	if !reflect.DeepEqual(got1, got2) {
		t.Errorf("Selection differs across partitionings:\n%q\n%q", got1, got2)
	}
}

func TestSelectFeaturesWritesWeightReports(t *testing.T) {
	cfg := testConfig(t)
	cfg.WeightsDir = filepath.Join(t.TempDir(), "weights")
	p := newPipeline(t, cfg)

	if _, err := p.SelectFeatures(context.Background(), twoDocs(t)); err != nil {
		t.Fatalf("SelectFeatures failed: %v", err)
	}
	for _, name := range []string{"domain", "A", "B"} {
		if _, err := os.Stat(filepath.Join(cfg.WeightsDir, name)); err != nil {
			t.Errorf("Missing weight report %q: %v", name, err)
		}
	}
}

func TestTrainKnownModel(t *testing.T) {
	p := newPipeline(t, testConfig(t))

	model, err := p.Train(context.Background(), twoDocs(t), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if !reflect.DeepEqual(model.Classes, []string{"A", "B"}) {
		t.Fatalf("Classes = %q, expected [A B]", model.Classes)
	}
	// Counts are [[2,0],[0,2]]; with add-one smoothing over 2
	// features each column normalizes by log(2+2)
	wantPTC := []float64{
		math.Log(3) - math.Log(4), math.Log(1) - math.Log(4),
		math.Log(1) - math.Log(4), math.Log(3) - math.Log(4),
	}
	if len(model.PTC) != len(wantPTC) {
		t.Fatalf("len(PTC) = %d, expected %d", len(model.PTC), len(wantPTC))
	}
	for i, want := range wantPTC {
		if math.Abs(model.PTC[i]-want) > 1e-12 {
			t.Errorf("PTC[%d] = %v, expected %v", i, model.PTC[i], want)
		}
	}
	// One document per class
	for c, pc := range model.PC {
		if pc != 0 {
			t.Errorf("PC[%d] = %v, expected 0", c, pc)
		}
	}
}

func TestTrainPartitioningInvariance(t *testing.T) {
	base := testConfig(t)
	base.MaxOrder = 2
	base.FeatsPerLang = 5

	docs := richDocs(t)
	feats, err := newPipeline(t, base).SelectFeatures(context.Background(), docs)
	if err != nil {
		t.Fatalf("SelectFeatures failed: %v", err)
	}

	coarse := base
	coarse.FeatsPerBucket = len(feats)
	coarse.Jobs = 1
	coarse.ChunkSize = 8

	fine := base
	fine.FeatsPerBucket = 3
	fine.Jobs = 4
	fine.ChunkSize = 1

	m1, err := newPipeline(t, coarse).Train(context.Background(), docs, feats)
	if err != nil {
		t.Fatalf("Train (coarse) failed: %v", err)
	}
	m2, err := newPipeline(t, fine).Train(context.Background(), docs, feats)
	if err != nil {
		t.Fatalf("Train (fine) failed: %v", err)
	}
	if !reflect.DeepEqual(m1.PTC, m2.PTC) {
		t.Errorf("PTC differs across partitionings")
	}
	if !reflect.DeepEqual(m1.PC, m2.PC) {
		t.Errorf("PC differs across partitionings")
	}
	if !reflect.DeepEqual(m1.Classes, m2.Classes) {
		t.Errorf("Classes differ across partitionings")
	}
}

// classify scores a byte string against a trained model the way a
// downstream identifier would: walk the transition table, tally
// feature occurrences through the output map, then take the argmax
// of the joint log-likelihood.
func classify(model *nbayes.Model, data []byte) string {
	numClasses := len(model.Classes)
	scores := append([]float64(nil), model.PC...)
	state := 0
	for _, b := range data {
		state = int(model.Table[state*256+int(b)])
		for _, fid := range model.Outputs[state] {
			for c := 0; c < numClasses; c++ {
				scores[c] += model.PTC[fid*numClasses+c]
			}
		}
	}
	best := 0
	for c := 1; c < numClasses; c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return model.Classes[best]
}

func TestTrainModelIdentifiesLanguages(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxOrder = 2
	cfg.FeatsPerLang = 5
	p := newPipeline(t, cfg)

	docs := richDocs(t)
	feats, err := p.SelectFeatures(context.Background(), docs)
	if err != nil {
		t.Fatalf("SelectFeatures failed: %v", err)
	}
	model, err := p.Train(context.Background(), docs, feats)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	cases := map[string]string{
		"the cat ran":   "en",
		"le chat court": "fr",
	}
	for text, want := range cases {
		if got := classify(model, []byte(text)); got != want {
			t.Errorf("classify(%q) = %q, expected %q", text, got, want)
		}
	}
}

func TestTrainNoDocuments(t *testing.T) {
	p := newPipeline(t, testConfig(t))
	if _, err := p.Train(context.Background(), nil, []string{"a"}); !errors.Is(err, internalerr.ErrNoDocuments) {
		t.Errorf("Expected ErrNoDocuments, got %v", err)
	}
}

func TestTrainEmptyFeatures(t *testing.T) {
	p := newPipeline(t, testConfig(t))
	if _, err := p.Train(context.Background(), twoDocs(t), nil); err == nil {
		t.Error("Expected error for empty feature vocabulary")
	}
}

func TestTrainCancelledContext(t *testing.T) {
	p := newPipeline(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Train(ctx, twoDocs(t), []string{"a", "b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
