package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
)

// Config holds every tunable of a pipeline run
type Config struct {
	// MaxOrder is the largest n-gram order considered during
	// feature selection
	MaxOrder int `yaml:"max_order"`
	// DFTokens is the number of top document-frequency candidates
	// kept per n-gram order
	DFTokens int `yaml:"df_tokens"`
	// FeatsPerLang is the number of features selected per language
	FeatsPerLang int `yaml:"feats_per_lang"`
	// Buckets is the hash-bucket count for the selection pipeline
	Buckets int `yaml:"buckets"`
	// FeatsPerBucket is the feature-id range width per training
	// bucket. Independent of ChunkSize: conflating document and
	// feature partitioning would silently change aggregation.
	FeatsPerBucket int `yaml:"feats_per_bucket"`
	// Jobs is the worker pool size per phase
	Jobs int `yaml:"jobs"`
	// ChunkSize is the documents-per-chunk dispatch size; 0 picks
	// min(numDocs/(jobs*2), 100)
	ChunkSize int `yaml:"chunk_size"`
	// TempDir hosts the per-run bucket tree; empty means the
	// system temp dir
	TempDir string `yaml:"temp_dir"`
	// WeightsDir, when set, receives diagnostic weight reports
	// during feature selection
	WeightsDir string `yaml:"weights_dir"`
}

// Default returns the standard configuration
func Default() Config {
	return Config{
		MaxOrder:       4,
		DFTokens:       15000,
		FeatsPerLang:   300,
		Buckets:        64,
		FeatsPerBucket: 100,
		Jobs:           runtime.NumCPU(),
	}
}

// Load reads a YAML configuration file over the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that every tunable is usable
func (c Config) Validate() error {
	if c.MaxOrder < 1 {
		return fmt.Errorf("max_order %d: %w", c.MaxOrder, internalerr.ErrInvalidConfig)
	}
	if c.DFTokens < 1 {
		return fmt.Errorf("df_tokens %d: %w", c.DFTokens, internalerr.ErrInvalidConfig)
	}
	if c.FeatsPerLang < 1 {
		return fmt.Errorf("feats_per_lang %d: %w", c.FeatsPerLang, internalerr.ErrInvalidConfig)
	}
	if c.Buckets < 1 {
		return fmt.Errorf("buckets %d: %w", c.Buckets, internalerr.ErrInvalidConfig)
	}
	if c.FeatsPerBucket < 1 {
		return fmt.Errorf("feats_per_bucket %d: %w", c.FeatsPerBucket, internalerr.ErrInvalidConfig)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs %d: %w", c.Jobs, internalerr.ErrInvalidConfig)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size %d: %w", c.ChunkSize, internalerr.ErrInvalidConfig)
	}
	return nil
}
