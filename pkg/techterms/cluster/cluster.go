// Package cluster groups filtered terms into semantic clusters using k-means
// over term embeddings, choosing the cluster count by silhouette score.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cognicore/techterms/pkg/techterms/embed"
	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// Algorithm is the tag recorded on every Result.
const Algorithm = "k-means"

// Defaults.
const (
	DefaultSeed      = 42
	DefaultNInit     = 10
	DefaultMaxIter   = 300
	DefaultMaxK      = 15
	DefaultBatchSize = 64
	DefaultTol       = 1e-4
)

// Cluster is one group of related terms.
type Cluster struct {
	ID              int      `json:"cluster_id"`
	Terms           []string `json:"terms"`
	SuggestedLabel  string   `json:"suggested_label"`
	CentroidNearest string   `json:"centroid_nearest"`
}

// Result is the outcome of one clustering run.
type Result struct {
	Clusters        []Cluster `json:"clusters"`
	Unclusterable   []string  `json:"unclusterable"`
	NumClusters     int       `json:"num_clusters"`
	SilhouetteScore float64   `json:"silhouette_score"`
	Algorithm       string    `json:"algorithm"`
}

// Clusterer embeds terms and clusters them.
type Clusterer struct {
	embedder  embed.Embedder
	anchors   []lexicon.Anchor
	seed      uint64
	nInit     int
	maxIter   int
	maxK      int
	batchSize int
	tol       float64
	logger    *slog.Logger
}

// Option configures a Clusterer.
type Option func(*Clusterer)

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(c *Clusterer) { c.seed = seed }
}

// WithNInit sets the number of k-means restarts per k.
func WithNInit(n int) Option {
	return func(c *Clusterer) {
		if n > 0 {
			c.nInit = n
		}
	}
}

// WithMaxIter sets the Lloyd iteration cap.
func WithMaxIter(n int) Option {
	return func(c *Clusterer) {
		if n > 0 {
			c.maxIter = n
		}
	}
}

// WithMaxK sets the largest cluster count tried during auto selection.
func WithMaxK(k int) Option {
	return func(c *Clusterer) {
		if k >= 2 {
			c.maxK = k
		}
	}
}

// WithBatchSize sets how many terms are sent to the embedder at once.
func WithBatchSize(n int) Option {
	return func(c *Clusterer) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithAnchors replaces the label anchor table.
func WithAnchors(anchors []lexicon.Anchor) Option {
	return func(c *Clusterer) { c.anchors = anchors }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Clusterer) { c.logger = logger }
}

// New creates a Clusterer. Anchors default to lexicon.Default().Anchors().
func New(embedder embed.Embedder, opts ...Option) (*Clusterer, error) {
	if embedder == nil {
		return nil, internalerr.ErrEmbedderRequired
	}
	c := &Clusterer{
		embedder:  embedder,
		anchors:   lexicon.Default().Anchors(),
		seed:      DefaultSeed,
		nInit:     DefaultNInit,
		maxIter:   DefaultMaxIter,
		maxK:      DefaultMaxK,
		batchSize: DefaultBatchSize,
		tol:       DefaultTol,
		logger:    slog.Default().With("component", "clusterer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cluster groups terms. k <= 0 selects the count automatically; a fixed k is
// clamped to [1, number of embeddable terms]. Terms without an embedding are
// reported as unclusterable. Errors are limited to context cancellation and
// vectors of mismatched dimension.
func (c *Clusterer) Cluster(ctx context.Context, terms []string, k int) (Result, error) {
	ordered := sortedUnique(terms)

	vecs, err := c.embed(ctx, ordered)
	if err != nil {
		return Result{}, err
	}

	var (
		names  []string
		points [][]float64
		result = Result{Algorithm: Algorithm}
	)
	for i, term := range ordered {
		if embed.IsZero(vecs[i]) {
			result.Unclusterable = append(result.Unclusterable, term)
			continue
		}
		names = append(names, term)
		points = append(points, toFloat64(vecs[i]))
	}

	if len(points) < 2 {
		c.logger.Warn("not enough embeddable terms to cluster", "terms", len(ordered), "embeddable", len(points))
		return Result{Unclusterable: ordered, Algorithm: Algorithm}, nil
	}
	if !sameDim(points) {
		return Result{}, fmt.Errorf("embedder returned vectors of mixed dimension: %w", internalerr.ErrInvalidInput)
	}

	var fit kmeansFit
	if k <= 0 {
		k, fit = c.selectK(points)
	} else {
		k = min(max(k, 1), len(points))
		fit = fitKMeans(points, k, c.seed, c.nInit, c.maxIter, c.tol)
	}

	result.NumClusters = k
	result.SilhouetteScore = round4(silhouette(points, fit.labels, k))
	result.Clusters = c.build(names, points, fit, k)

	c.logger.Info("clustered terms",
		"terms", len(ordered),
		"clusters", k,
		"silhouette", result.SilhouetteScore,
		"unclusterable", len(result.Unclusterable))
	return result, nil
}

// selectK tries every k in [2, min(maxK, n-1)] and keeps the one with the
// highest silhouette (first on ties). Fewer than three points use k=2.
func (c *Clusterer) selectK(points [][]float64) (int, kmeansFit) {
	n := len(points)
	upper := min(c.maxK, n-1)
	if n < 3 || upper < 2 {
		return 2, fitKMeans(points, 2, c.seed, c.nInit, c.maxIter, c.tol)
	}

	bestK, bestScore := 2, -1.0
	var bestFit kmeansFit
	for k := 2; k <= upper; k++ {
		fit := fitKMeans(points, k, c.seed, c.nInit, c.maxIter, c.tol)
		if k == 2 {
			bestFit = fit
		}
		score := silhouette(points, fit.labels, k)
		c.logger.Debug("evaluated cluster count", "k", k, "silhouette", score)
		if score > bestScore {
			bestK, bestScore, bestFit = k, score, fit
		}
	}
	return bestK, bestFit
}

func (c *Clusterer) build(names []string, points [][]float64, fit kmeansFit, k int) []Cluster {
	members := make([][]int, k)
	for i, l := range fit.labels {
		members[l] = append(members[l], i)
	}

	var clusters []Cluster
	for id, idx := range members {
		if len(idx) == 0 {
			continue
		}
		nearest, nearestDist := idx[0], sqDist(points[idx[0]], fit.centroids[id])
		terms := make([]string, 0, len(idx))
		for _, i := range idx {
			terms = append(terms, names[i])
			if d := sqDist(points[i], fit.centroids[id]); d < nearestDist {
				nearest, nearestDist = i, d
			}
		}
		sortTerms(terms)
		clusters = append(clusters, Cluster{
			ID:              id,
			Terms:           terms,
			SuggestedLabel:  SuggestLabel(terms, c.anchors),
			CentroidNearest: names[nearest],
		})
	}
	return clusters
}

// embed fetches vectors batch by batch. A failed batch is retried one term
// at a time; a term that still fails gets no vector.
func (c *Clusterer) embed(ctx context.Context, terms []string) ([][]float32, error) {
	out := make([][]float32, len(terms))
	for start := 0; start < len(terms); start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+c.batchSize, len(terms))
		batch := terms[start:end]

		vecs, err := c.embedder.EmbedTexts(ctx, batch)
		if err == nil && len(vecs) == len(batch) {
			copy(out[start:end], vecs)
			continue
		}
		c.logger.Warn("embedding batch failed, retrying per term", "size", len(batch), "err", err)

		for i, term := range batch {
			vec, err := embed.EmbedText(ctx, c.embedder, term)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				c.logger.Debug("term has no embedding", "term", term, "err", err)
				continue
			}
			out[start+i] = vec
		}
	}
	return out, nil
}

func sortedUnique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sortTerms(out)
	return out
}

// sortTerms orders case-insensitively, breaking ties on the raw string.
func sortTerms(terms []string) {
	sort.Slice(terms, func(i, j int) bool {
		a, b := strings.ToLower(terms[i]), strings.ToLower(terms[j])
		if a != b {
			return a < b
		}
		return terms[i] < terms[j]
	})
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = float64(x)
	}
	return out
}

func sameDim(points [][]float64) bool {
	for _, p := range points[1:] {
		if len(p) != len(points[0]) {
			return false
		}
	}
	return true
}
