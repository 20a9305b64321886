package config

import (
	"fmt"
	"log/slog"

	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/embed"
	"github.com/cognicore/techterms/pkg/techterms/extract"
	"github.com/cognicore/techterms/pkg/techterms/filter"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// Loader builds pipeline components from a Config.
type Loader struct {
	Config Config
	Logger *slog.Logger
}

// Components holds everything a run needs.
type Components struct {
	Lexicon   *lexicon.Lexicon
	Extractor *extract.Extractor
	Filter    *filter.Filter
	Embedder  embed.Embedder     // nil when no provider is configured
	Clusterer *cluster.Clusterer // nil when Embedder is nil

	cache *embed.Cache
}

// Close releases the embedding cache, if one was opened.
func (c *Components) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// Load validates the config and constructs the components.
func (l *Loader) Load() (*Components, error) {
	cfg := l.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	comp := &Components{}

	if cfg.Lexicon != "" {
		lex, err := lexicon.LoadFromYAML(cfg.Lexicon)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.Default()
	}

	comp.Extractor = extract.New(comp.Lexicon, extract.WithLogger(logger.With("component", "extractor")))
	comp.Filter = filter.New(comp.Lexicon, logger)

	emb, err := l.embedder(comp)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		return comp, nil
	}
	comp.Embedder = emb

	comp.Clusterer, err = cluster.New(emb,
		cluster.WithSeed(cfg.Seed),
		cluster.WithNInit(cfg.NInit),
		cluster.WithMaxK(cfg.MaxClusters),
		cluster.WithBatchSize(cfg.Embedding.BatchSize),
		cluster.WithAnchors(comp.Lexicon.Anchors()),
		cluster.WithLogger(logger.With("component", "clusterer")),
	)
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("build clusterer: %w", err)
	}
	return comp, nil
}

func (l *Loader) embedder(comp *Components) (embed.Embedder, error) {
	cfg := l.Config.Embedding

	var (
		inner embed.Embedder
		model string
	)
	switch {
	case cfg.Vectors != "":
		vecs, err := embed.LoadVectorsFile(cfg.Vectors)
		if err != nil {
			return nil, fmt.Errorf("load vectors: %w", err)
		}
		inner, model = vecs, "vectors:"+cfg.Vectors
	case cfg.Host != "":
		oa, err := embed.NewOpenAI(embed.OpenAIConfig{Host: cfg.Host, Model: cfg.Model, Token: cfg.Token})
		if err != nil {
			return nil, fmt.Errorf("connect embeddings: %w", err)
		}
		inner, model = oa, oa.Model()
	default:
		return nil, nil
	}

	if cfg.Cache == "" {
		return inner, nil
	}
	cache, err := embed.OpenCache(cfg.Cache, inner, model)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	comp.cache = cache
	return cache, nil
}
