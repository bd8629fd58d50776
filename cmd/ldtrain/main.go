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
		corpusDir  = flag.String("corpus", "", "Corpus root directory (required)")
		inputPath  = flag.String("input", "", "Selected-feature input file (required)")
		outputPath = flag.String("output", "", "Model output file (required)")
		configPath = flag.String("config", "", "YAML configuration file (optional)")
		tempDir    = flag.String("temp", "", "Scratch directory for bucket files (optional)")
		jobs       = flag.Int("jobs", 0, "Worker pool size (0 uses the configured value)")
		quiet      = flag.Bool("quiet", false, "Suppress progress output")
	)
	flag.Parse()

	if *corpusDir == "" {
		log.Fatal("--corpus required")
	}
	if *inputPath == "" {
		log.Fatal("--input required")
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
	if *tempDir != "" {
		cfg.TempDir = *tempDir
	}
	if *jobs > 0 {
		cfg.Jobs = *jobs
	}

	var logger *slog.Logger
	if !*quiet {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	features, err := infogain.ReadFeatures(*inputPath)
	if err != nil {
		log.Fatal("Failed to read features:", err)
	}

	docs, err := corpus.Walk(*corpusDir)
	if err != nil {
		log.Fatal("Failed to walk corpus:", err)
	}

	model, err := p.Train(context.Background(), docs, features)
	if err != nil {
		log.Fatal("Training failed:", err)
	}

	if err := model.Save(*outputPath); err != nil {
		log.Fatal("Failed to save model:", err)
	}
	log.Printf("Wrote model for %d classes over %d features to %s",
		model.NumClasses(), model.NumFeatures(), *outputPath)
}
