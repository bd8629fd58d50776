package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/lexlab/lidtrain/pkg/lidtrain/config"
	"github.com/lexlab/lidtrain/pkg/lidtrain/corpus"
	"github.com/lexlab/lidtrain/pkg/lidtrain/infogain"
	"github.com/lexlab/lidtrain/pkg/lidtrain/pipeline"
)

func main() {
	var (
		corpusDir    = flag.String("corpus", "", "Corpus root directory (required)")
		outputPath   = flag.String("output", "", "Selected-feature output file (required)")
		configPath   = flag.String("config", "", "YAML configuration file (optional)")
		weightsDir   = flag.String("weights", "", "Directory for diagnostic weight reports (optional)")
		tempDir      = flag.String("temp", "", "Scratch directory for bucket files (optional)")
		jobs         = flag.Int("jobs", 0, "Worker pool size (0 uses the configured value)")
		maxOrder     = flag.Int("max-order", 0, "Largest n-gram order (0 uses the configured value)")
		featsPerLang = flag.Int("feats-per-lang", 0, "Features kept per language (0 uses the configured value)")
		quiet        = flag.Bool("quiet", false, "Suppress progress output")
	)
	flag.Parse()

	if *corpusDir == "" {
		log.Fatal("--corpus required")
	}
	if *outputPath == "" {
		log.Fatal("--output required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal("Failed to load configuration:", err)
		}
	}
	if *weightsDir != "" {
		cfg.WeightsDir = *weightsDir
	}
	if *tempDir != "" {
		cfg.TempDir = *tempDir
	}
	if *jobs > 0 {
		cfg.Jobs = *jobs
	}
	if *maxOrder > 0 {
		cfg.MaxOrder = *maxOrder
	}
	if *featsPerLang > 0 {
		cfg.FeatsPerLang = *featsPerLang
	}

	var logger *slog.Logger
	if !*quiet {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	docs, err := corpus.Walk(*corpusDir)
	if err != nil {
		log.Fatal("Failed to walk corpus:", err)
	}

	features, err := p.SelectFeatures(context.Background(), docs)
	if err != nil {
		log.Fatal("Feature selection failed:", err)
	}

	if err := infogain.WriteFeatures(*outputPath, features); err != nil {
		log.Fatal("Failed to write features:", err)
	}
	log.Printf("Wrote %d features to %s", len(features), *outputPath)
}
