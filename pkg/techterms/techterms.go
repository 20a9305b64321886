// Package techterms runs the keyword pipeline over a corpus of job
// descriptions: preprocess, extract, merge, filter, and optionally cluster
// and persist the outcome.
package techterms

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/cognicore/techterms/internal/jobs"
	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/extract"
	"github.com/cognicore/techterms/pkg/techterms/filter"
	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
	"github.com/cognicore/techterms/pkg/techterms/store"
	"github.com/cognicore/techterms/pkg/techterms/textprep"
)

// Engine is the pipeline facade.
type Engine struct {
	extractor  *extract.Extractor
	filter     *filter.Filter
	clusterer  *cluster.Clusterer
	store      store.Store
	minSources int
	clusters   int
	pool       *ants.Pool
	logger     *slog.Logger
	now        func() time.Time
}

// Options configures an Engine. Extractor and Filter default to builds over
// Lexicon (or the built-in lexicon). Clustering runs only with a Clusterer;
// runs are persisted only with a Store.
type Options struct {
	Lexicon    *lexicon.Lexicon
	Extractor  *extract.Extractor
	Filter     *filter.Filter
	Clusterer  *cluster.Clusterer
	Store      store.Store
	MinSources int // distinct-source floor; default 2
	Clusters   int // fixed cluster count; 0 selects automatically
	PoolSize   int // default runtime.NumCPU() / 2, minimum 1
	Logger     *slog.Logger
	Now        func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	RunID      string // empty when no Store is configured
	Documents  int
	Companies  []string
	Raw        *candidate.Set
	Filter     filter.Result
	Clustering *cluster.Result
}

// New creates an Engine. Call Release when done.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lex := opts.Lexicon
	if lex == nil {
		lex = lexicon.Default()
	}

	e := &Engine{
		extractor:  opts.Extractor,
		filter:     opts.Filter,
		clusterer:  opts.Clusterer,
		store:      opts.Store,
		minSources: opts.MinSources,
		clusters:   opts.Clusters,
		logger:     logger.With("component", "engine"),
		now:        opts.Now,
	}
	if e.extractor == nil {
		e.extractor = extract.New(lex, extract.WithLogger(logger.With("component", "extractor")))
	}
	if e.filter == nil {
		e.filter = filter.New(lex, logger)
	}
	if e.minSources <= 0 {
		e.minSources = filter.DefaultMinSources
	}
	if e.clusters < 0 {
		return nil, fmt.Errorf("clusters must not be negative: %w", internalerr.ErrInvalidInput)
	}
	if e.now == nil {
		e.now = time.Now
	}

	size := opts.PoolSize
	if size <= 0 {
		size = runtime.NumCPU() / 2
	}
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	e.pool = pool
	return e, nil
}

// Release frees the worker pool. The Engine must not be used afterwards.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Run processes docs. Cancelling ctx stops new documents from being
// submitted and returns ctx.Err() once in-flight work finishes.
func (e *Engine) Run(ctx context.Context, docs []jobs.Description) (Result, error) {
	if len(docs) == 0 {
		return Result{}, internalerr.ErrNoDocuments
	}
	start := e.now()

	raw, err := e.extractAll(ctx, docs)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Documents: len(docs),
		Companies: companies(docs),
		Raw:       raw,
	}
	res.Filter = e.filter.Apply(raw, res.Companies, e.minSources)
	e.logger.Info("filtered candidates",
		"documents", res.Documents,
		"candidates", raw.Len(),
		"kept", res.Filter.Kept.Len(),
		"removed", res.Filter.Removed.Len())

	if e.clusterer != nil {
		clustering, err := e.clusterer.Cluster(ctx, displayTerms(res.Filter.Kept), e.clusters)
		if err != nil {
			return Result{}, fmt.Errorf("cluster terms: %w", err)
		}
		res.Clustering = &clustering
	}

	if e.store != nil {
		run := store.Run{
			ID:         store.NewRunID(start),
			CreatedAt:  start,
			Documents:  res.Documents,
			MinSources: e.minSources,
			Terms:      store.Records(res.Filter),
			Clustering: res.Clustering,
		}
		if err := e.store.SaveRun(ctx, run); err != nil {
			return Result{}, fmt.Errorf("save run: %w", err)
		}
		res.RunID = run.ID
		e.logger.Info("saved run", "run", run.ID)
	}

	return res, nil
}

// Explain reports why term would be removed as a single-source candidate,
// or "" when it would be kept.
func (e *Engine) Explain(term string, companies []string) filter.Reason {
	return e.filter.Explain(term, companies, e.minSources)
}

// extractAll preprocesses and extracts each document on the pool and merges
// the per-document sets. Merge order does not affect the result.
func (e *Engine) extractAll(ctx context.Context, docs []jobs.Description) (*candidate.Set, error) {
	sets := make([]*candidate.Set, len(docs))
	var (
		wg        sync.WaitGroup
		submitErr error
	)
	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		doc := docs[i]
		idx := i
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			sets[idx] = e.extractor.ExtractCandidates(textprep.Preprocess(doc.Text), doc.Company)
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submit %s: %w", doc.Filename, err)
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if submitErr != nil {
		return nil, submitErr
	}

	raw := candidate.MergeAll(sets...)
	e.logger.Debug("extracted candidates", "documents", len(docs), "candidates", raw.Len())
	return raw, nil
}

// companies returns the distinct non-empty companies of docs, sorted.
func companies(docs []jobs.Description) []string {
	seen := make(map[string]struct{}, len(docs))
	var out []string
	for _, d := range docs {
		if d.Company == "" {
			continue
		}
		if _, ok := seen[d.Company]; ok {
			continue
		}
		seen[d.Company] = struct{}{}
		out = append(out, d.Company)
	}
	sort.Strings(out)
	return out
}

func displayTerms(set *candidate.Set) []string {
	entries := set.Sorted()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Term.Term
	}
	return out
}
