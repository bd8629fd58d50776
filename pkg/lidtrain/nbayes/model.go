package nbayes

import (
	"compress/gzip"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"os"
)

// modelVersion guards the artifact layout; Load rejects anything else
const modelVersion = 1

// Model is the terminal training output: everything a downstream
// classifier needs to tokenize and score new text without
// recomputation.
type Model struct {
	// PTC holds log P(term|class), flat and feature-major
	PTC []float64
	// PC holds unnormalized log P(class)
	PC []float64
	// Classes lists class names in column order
	Classes []string
	// Table is the compiled automaton transition table
	Table []uint16
	// Outputs maps automaton states to feature ids
	Outputs map[int][]int
}

// NumClasses returns the number of classes
func (m *Model) NumClasses() int {
	return len(m.Classes)
}

// NumFeatures returns the vocabulary size
func (m *Model) NumFeatures() int {
	if len(m.Classes) == 0 {
		return 0
	}
	return len(m.PTC) / len(m.Classes)
}

type artifact struct {
	Version int
	Model   *Model
}

// Save serializes the model, compresses it and encodes it into a
// single text-safe file
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	b64 := base64.NewEncoder(base64.StdEncoding, f)
	gz := gzip.NewWriter(b64)

	if err := gob.NewEncoder(gz).Encode(artifact{Version: modelVersion, Model: m}); err != nil {
		f.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return fmt.Errorf("compress model: %w", err)
	}
	if err := b64.Close(); err != nil {
		f.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	return f.Close()
}

// Load reads a model artifact back
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(base64.NewDecoder(base64.StdEncoding, f))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer gz.Close()

	var a artifact
	if err := gob.NewDecoder(gz).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if a.Version != modelVersion {
		return nil, fmt.Errorf("model format version %d, expected %d", a.Version, modelVersion)
	}
	return a.Model, nil
}
