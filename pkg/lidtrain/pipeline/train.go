package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/lexlab/lidtrain/pkg/lidtrain/bucket"
	"github.com/lexlab/lidtrain/pkg/lidtrain/corpus"
	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
	"github.com/lexlab/lidtrain/pkg/lidtrain/nbayes"
	"github.com/lexlab/lidtrain/pkg/lidtrain/scanner"
)

// trainRun holds the read-only inputs broadcast to every training
// worker: the compiled scanner, the chunking and the feature-range
// bucket assignment. Never mutated after construction.
type trainRun struct {
	docs   []corpus.Doc
	chunks []corpus.Span
	store  *bucket.Store
	sc     *scanner.Scanner
	ranges bucket.Ranges
}

// Train runs the training pipeline: scan every document with the
// vocabulary scanner, spread per-document occurrence counts over
// feature-range buckets, accumulate the per-bucket count matrices
// against the language class map and estimate the naive-Bayes
// parameters. The feature slice order defines feature ids.
func (p *Pipeline) Train(ctx context.Context, docs []corpus.Doc, features []string) (*nbayes.Model, error) {
	if len(docs) == 0 {
		return nil, internalerr.ErrNoDocuments
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("train: empty feature vocabulary")
	}

	langs := corpus.LangMap(docs)

	keywords := make([][]byte, len(features))
	for i, feat := range features {
		keywords[i] = []byte(feat)
	}
	sc, err := scanner.Build(keywords)
	if err != nil {
		return nil, fmt.Errorf("build scanner: %w", err)
	}
	p.log.Info("scanner built", "features", len(features), "states", sc.NumStates())

	runDir, err := p.newRunDir("train")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(runDir)

	ranges := bucket.NewRanges(len(features), p.cfg.FeatsPerBucket)
	store, err := bucket.Create(filepath.Join(runDir, "buckets"), ranges.Count())
	if err != nil {
		return nil, err
	}

	run := &trainRun{
		docs:   docs,
		chunks: corpus.Chunks(len(docs), p.chunkSize(len(docs))),
		store:  store,
		sc:     sc,
		ranges: ranges,
	}

	written, err := p.countPhase(ctx, run)
	if err != nil {
		return nil, err
	}
	p.log.Info("count phase done", "chunks", len(run.chunks), "keys", written)

	counts, read, err := p.accumulatePhase(ctx, run, langs)
	if err != nil {
		return nil, err
	}
	if read != written {
		return nil, fmt.Errorf("count accumulation: read %d of %d keys: %w", read, written, internalerr.ErrShortRead)
	}
	p.log.Info("counts accumulated", "features", len(features), "classes", len(langs.Names))

	return &nbayes.Model{
		PTC:     nbayes.Estimate(counts),
		PC:      nbayes.ClassPriors(langs.M),
		Classes: langs.Names,
		Table:   sc.Table(),
		Outputs: sc.Outputs(),
	}, nil
}

// countPhase is the training map pass: bulk-scan each document,
// recover per-feature occurrence counts from the entered-state
// counts and route each cell to the bucket owning the feature's id
// range.
func (p *Pipeline) countPhase(ctx context.Context, run *trainRun) (int64, error) {
	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Jobs)
	for chunkID, span := range run.chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := p.countChunk(chunkID, span, run)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunkID, err)
			}
			written.Add(n)
			p.log.Info("counted chunk", "chunk", chunkID+1, "total", len(run.chunks), "keys", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return written.Load(), nil
}

func (p *Pipeline) countChunk(chunkID int, span corpus.Span, run *trainRun) (n int64, err error) {
	writers, err := run.store.Writers(chunkID, ".index")
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := bucket.CloseAll(writers); cerr != nil && err == nil {
			err = cerr
		}
	}()

	stateCounts := make([]int64, run.sc.NumStates())
	occ := make(map[int]int64)
	for local := 0; local < span.Len(); local++ {
		data, rerr := os.ReadFile(run.docs[span.Start+local].Path)
		if rerr != nil {
			return 0, fmt.Errorf("read document: %w", rerr)
		}

		clear(stateCounts)
		run.sc.StateCounts(data, stateCounts)

		// Intersect entered states with output states after the
		// scan; a feature may be emitted by several states
		clear(occ)
		for state, feats := range run.sc.Outputs() {
			c := stateCounts[state]
			if c == 0 {
				continue
			}
			for _, fid := range feats {
				occ[fid] += c
			}
		}

		for fid, count := range occ {
			rec := bucket.CountRecord{
				FeatureID: int64(fid),
				ChunkID:   int64(chunkID),
				DocID:     int64(local),
				Count:     count,
			}
			if werr := writers[run.ranges.Bucket(fid)].Append(rec); werr != nil {
				return 0, werr
			}
			n++
		}
	}
	return n, nil
}

// accumulatePhase is the training reduce pass: per bucket, replay
// the partial count records into a dense documents-by-features
// matrix (unseen cells stay zero) and multiply its transpose by the
// class map, then stack the per-bucket products in feature-id order.
func (p *Pipeline) accumulatePhase(ctx context.Context, run *trainRun, langs corpus.ClassMap) (*mat.Dense, int64, error) {
	numDocs := len(run.docs)
	parts := make([]*mat.Dense, run.store.Count())
	var read atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Jobs)
	for i := 0; i < run.store.Count(); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base := run.ranges.Base(i)
			width := run.ranges.Len(i)
			fm := mat.NewDense(numDocs, width, nil)

			n, err := bucket.ReadDir(run.store.Dir(i), ".index", func(rec bucket.Record) error {
				cr, ok := rec.(bucket.CountRecord)
				if !ok {
					return fmt.Errorf("unexpected %T record: %w", rec, internalerr.ErrCorruptRecord)
				}
				if cr.ChunkID < 0 || cr.ChunkID >= int64(len(run.chunks)) {
					return fmt.Errorf("chunk id %d: %w", cr.ChunkID, internalerr.ErrCorruptRecord)
				}
				doc := run.chunks[cr.ChunkID].Start + int(cr.DocID)
				feat := int(cr.FeatureID) - base
				if doc < 0 || doc >= numDocs || feat < 0 || feat >= width {
					return fmt.Errorf("cell (%d,%d): %w", cr.DocID, cr.FeatureID, internalerr.ErrCorruptRecord)
				}
				fm.Set(doc, feat, float64(cr.Count))
				return nil
			})
			if err != nil {
				return fmt.Errorf("bucket %d: %w", i, err)
			}

			var prod mat.Dense
			prod.Mul(fm.T(), langs.M)
			parts[i] = &prod
			read.Add(n)
			p.log.Info("accumulated bucket", "bucket", i+1, "total", run.store.Count(), "keys", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	counts := mat.NewDense(totalFeatures(run.ranges), len(langs.Names), nil)
	for i, part := range parts {
		base := run.ranges.Base(i)
		rows, _ := part.Dims()
		for r := 0; r < rows; r++ {
			counts.SetRow(base+r, part.RawRowView(r))
		}
	}
	return counts, read.Load(), nil
}

func totalFeatures(r bucket.Ranges) int {
	total := 0
	for i := 0; i < r.Count(); i++ {
		total += r.Len(i)
	}
	return total
}
