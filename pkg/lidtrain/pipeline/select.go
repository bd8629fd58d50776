package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/lexlab/lidtrain/pkg/lidtrain/bucket"
	"github.com/lexlab/lidtrain/pkg/lidtrain/corpus"
	"github.com/lexlab/lidtrain/pkg/lidtrain/infogain"
	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
	"github.com/lexlab/lidtrain/pkg/lidtrain/ngram"
)

// selectRun holds the read-only inputs broadcast to every selection
// worker. Constructed once per run, never mutated afterwards.
type selectRun struct {
	docs      []corpus.Doc
	chunks    []corpus.Span
	store     *bucket.Store
	extractor *ngram.Extractor
}

// SelectFeatures runs the feature-selection pipeline over the corpus
// and returns the union of the per-language feature sets, sorted.
// When cfg.WeightsDir is set, diagnostic weight reports are written
// there as a side output.
func (p *Pipeline) SelectFeatures(ctx context.Context, docs []corpus.Doc) ([]string, error) {
	if len(docs) == 0 {
		return nil, internalerr.ErrNoDocuments
	}

	domains := corpus.DomainMap(docs)
	langs := corpus.LangMap(docs)
	p.log.Info("class maps built", "docs", len(docs), "langs", len(langs.Names), "domains", len(domains.Names))

	runDir, err := p.newRunDir("select")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(runDir)

	store, err := bucket.Create(filepath.Join(runDir, "buckets"), p.cfg.Buckets)
	if err != nil {
		return nil, err
	}

	run := &selectRun{
		docs:      docs,
		chunks:    corpus.Chunks(len(docs), p.chunkSize(len(docs))),
		store:     store,
		extractor: ngram.NewExtractor(p.cfg.MaxOrder),
	}

	written, err := p.tokenizePhase(ctx, run)
	if err != nil {
		return nil, err
	}
	p.log.Info("tokenize phase done", "chunks", len(run.chunks), "keys", written)

	df, read, err := p.docFreqPhase(ctx, store)
	if err != nil {
		return nil, err
	}
	if read != written {
		return nil, fmt.Errorf("document frequencies: read %d of %d keys: %w", read, written, internalerr.ErrShortRead)
	}
	p.log.Info("document frequencies consolidated", "terms", len(df))

	candidates := infogain.CandidateCut(df, p.cfg.MaxOrder, p.cfg.DFTokens)
	p.log.Info("candidate features cut", "count", len(candidates))

	terms, wDomain, wLang, langDF, err := p.gainPhase(ctx, run, candidates, domains, langs)
	if err != nil {
		return nil, err
	}

	if p.cfg.WeightsDir != "" {
		if err := os.MkdirAll(p.cfg.WeightsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create weights dir: %w", err)
		}
		domainWeights := make([]infogain.Weight, len(terms))
		for t, term := range terms {
			domainWeights[t] = infogain.Weight{Term: term, Score: wDomain[t]}
		}
		if err := infogain.WriteWeights(filepath.Join(p.cfg.WeightsDir, "domain"), domainWeights); err != nil {
			return nil, err
		}
	}

	selections := make([][]infogain.Weight, len(langs.Names))
	for l, lang := range langs.Names {
		weights := make([]infogain.Weight, len(terms))
		for t, term := range terms {
			weights[t] = infogain.Weight{Term: term, Score: wLang[l][t], LangDF: langDF[l][t]}
		}
		selections[l] = infogain.Top(weights, p.cfg.FeatsPerLang)
		if p.cfg.WeightsDir != "" {
			if err := infogain.WriteWeights(filepath.Join(p.cfg.WeightsDir, lang), weights); err != nil {
				return nil, err
			}
		}
	}

	selected := infogain.Union(selections)
	p.log.Info("features selected", "count", len(selected))
	return selected, nil
}

// tokenizePhase is the selection map pass: tokenize each chunk's
// documents into n-gram presence sets and spread partial document
// frequencies and postings over the hash buckets.
func (p *Pipeline) tokenizePhase(ctx context.Context, run *selectRun) (int64, error) {
	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Jobs)
	for chunkID, span := range run.chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := p.tokenizeChunk(chunkID, span, run)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunkID, err)
			}
			written.Add(n)
			p.log.Info("tokenized chunk", "chunk", chunkID+1, "total", len(run.chunks), "keys", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return written.Load(), nil
}

func (p *Pipeline) tokenizeChunk(chunkID int, span corpus.Span, run *selectRun) (n int64, err error) {
	freq, err := run.store.Writers(chunkID, ".freq")
	if err != nil {
		return 0, err
	}
	lists, err := run.store.Writers(chunkID, ".list")
	if err != nil {
		bucket.CloseAll(freq)
		return 0, err
	}
	defer func() {
		if cerr := bucket.CloseAll(freq); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := bucket.CloseAll(lists); cerr != nil && err == nil {
			err = cerr
		}
	}()

	dfCount := make(map[string]int64)
	postings := make(map[string][]int64)
	for local := 0; local < span.Len(); local++ {
		data, rerr := os.ReadFile(run.docs[span.Start+local].Path)
		if rerr != nil {
			return 0, fmt.Errorf("read document: %w", rerr)
		}
		for gram := range run.extractor.Set(data) {
			dfCount[gram]++
			postings[gram] = append(postings[gram], int64(local))
		}
	}

	for gram, count := range dfCount {
		b := bucket.Partition([]byte(gram), run.store.Count())
		if werr := freq[b].Append(bucket.DFRecord{Term: []byte(gram), Count: count}); werr != nil {
			return 0, werr
		}
		rec := bucket.PostingRecord{Term: []byte(gram), ChunkID: int64(chunkID), DocIDs: postings[gram]}
		if werr := lists[b].Append(rec); werr != nil {
			return 0, werr
		}
		n++
	}
	return n, nil
}

// docFreqPhase is the selection reduce pass: per bucket, sum every
// partial document-frequency record by term and spill one
// consolidated table, then merge the spills into the global mapping.
func (p *Pipeline) docFreqPhase(ctx context.Context, store *bucket.Store) (map[string]int64, int64, error) {
	spills := make([]*bucket.Spill, store.Count())
	var read atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Jobs)
	for i := 0; i < store.Count(); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sums := make(map[string]int64)
			n, err := bucket.ReadDir(store.Dir(i), ".freq", func(rec bucket.Record) error {
				df, ok := rec.(bucket.DFRecord)
				if !ok {
					return fmt.Errorf("unexpected %T record: %w", rec, internalerr.ErrCorruptRecord)
				}
				sums[string(df.Term)] += df.Count
				return nil
			})
			if err != nil {
				return fmt.Errorf("bucket %d: %w", i, err)
			}

			sp, err := bucket.NewSpill(filepath.Join(store.Dir(i), "docfreq.df"))
			if err != nil {
				return err
			}
			for term, count := range sums {
				if err := sp.Append(bucket.DFRecord{Term: []byte(term), Count: count}); err != nil {
					sp.Close()
					return err
				}
			}
			if err := sp.Close(); err != nil {
				return err
			}
			spills[i] = sp
			read.Add(n)
			p.log.Info("consolidated bucket", "bucket", i+1, "total", store.Count(), "keys", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	df := make(map[string]int64)
	for _, sp := range spills {
		err := sp.Iter(func(rec bucket.Record) error {
			d := rec.(bucket.DFRecord)
			df[string(d.Term)] = d.Count
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return df, read.Load(), nil
}

// gainResult is one bucket's slice of the scored candidate space
type gainResult struct {
	terms   []string
	wDomain []float64
	wLang   [][]float64
	langDF  [][]int64
}

// gainPhase reconstructs, per bucket, the boolean presence matrix of
// the candidate features living there and computes domain gain and
// per-language gain net of domain bias.
func (p *Pipeline) gainPhase(ctx context.Context, run *selectRun, candidates []string, domains, langs corpus.ClassMap) ([]string, []float64, [][]float64, [][]int64, error) {
	candSet := make(map[string]struct{}, len(candidates))
	for _, term := range candidates {
		candSet[term] = struct{}{}
	}
	numDocs := len(run.docs)
	numLangs := len(langs.Names)
	results := make([]*gainResult, run.store.Count())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Jobs)
	for i := 0; i < run.store.Count(); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			postings := make(map[string][]int)
			_, err := bucket.ReadDir(run.store.Dir(i), ".list", func(rec bucket.Record) error {
				pr, ok := rec.(bucket.PostingRecord)
				if !ok {
					return fmt.Errorf("unexpected %T record: %w", rec, internalerr.ErrCorruptRecord)
				}
				term := string(pr.Term)
				if _, ok := candSet[term]; !ok {
					return nil
				}
				if pr.ChunkID < 0 || pr.ChunkID >= int64(len(run.chunks)) {
					return fmt.Errorf("chunk id %d: %w", pr.ChunkID, internalerr.ErrCorruptRecord)
				}
				base := run.chunks[pr.ChunkID].Start
				for _, local := range pr.DocIDs {
					id := base + int(local)
					if id < 0 || id >= numDocs {
						return fmt.Errorf("doc id %d: %w", id, internalerr.ErrCorruptRecord)
					}
					postings[term] = append(postings[term], id)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("bucket %d: %w", i, err)
			}

			res := &gainResult{wLang: make([][]float64, numLangs), langDF: make([][]int64, numLangs)}
			if len(postings) > 0 {
				res.terms = make([]string, 0, len(postings))
				for term := range postings {
					res.terms = append(res.terms, term)
				}
				sort.Strings(res.terms)

				presence := mat.NewDense(numDocs, len(res.terms), nil)
				for t, term := range res.terms {
					for _, id := range postings[term] {
						presence.Set(id, t, 1)
					}
				}

				res.wDomain = infogain.Gain(presence, domains.M)
				langCounts := infogain.ClassCounts(presence, langs.M)
				for l := 0; l < numLangs; l++ {
					w := infogain.Gain(presence, langs.Binarize(l))
					df := make([]int64, len(res.terms))
					for t := range w {
						w[t] -= res.wDomain[t]
						df[t] = int64(langCounts.At(t, l))
					}
					res.wLang[l] = w
					res.langDF[l] = df
				}
			}
			results[i] = res
			p.log.Info("scored bucket", "bucket", i+1, "total", run.store.Count(), "terms", len(res.terms))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}

	// Concatenate the per-bucket slices; order across buckets is
	// fixed by bucket index, so the assembly is reproducible
	var terms []string
	var wDomain []float64
	wLang := make([][]float64, numLangs)
	langDF := make([][]int64, numLangs)
	for _, res := range results {
		terms = append(terms, res.terms...)
		wDomain = append(wDomain, res.wDomain...)
		for l := 0; l < numLangs; l++ {
			wLang[l] = append(wLang[l], res.wLang[l]...)
			langDF[l] = append(langDF[l], res.langDF[l]...)
		}
	}
	return terms, wDomain, wLang, langDF, nil
}
