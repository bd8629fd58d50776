package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/lexlab/lidtrain/pkg/lidtrain/config"
	"github.com/lexlab/lidtrain/pkg/lidtrain/corpus"
)

// Pipeline runs the disk-backed map→shuffle→reduce passes that build
// the classifier artifacts: feature selection over n-gram document
// frequencies, and training over scanner occurrence counts. Phases
// form strict barriers; a later phase never starts before every
// worker of the earlier phase has finished and its output is on
// disk. Each run owns a temporary bucket tree and releases it on
// every exit path.
type Pipeline struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a Pipeline. A nil logger silences progress output.
func New(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, log: logger}, nil
}

// newRunDir creates the run-scoped temp root. The ULID keeps
// concurrent runs sharing a temp dir apart and makes leftover trees
// attributable to a run.
func (p *Pipeline) newRunDir(stage string) (string, error) {
	base := p.cfg.TempDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, fmt.Sprintf("lidtrain-%s-%s", stage, ulid.Make()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

func (p *Pipeline) chunkSize(numDocs int) int {
	if p.cfg.ChunkSize > 0 {
		return p.cfg.ChunkSize
	}
	return corpus.ChunkSize(numDocs, p.cfg.Jobs)
}
