package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cognicore/techterms/internal/jobs"
	"github.com/cognicore/techterms/pkg/techterms"
	"github.com/cognicore/techterms/pkg/techterms/config"
	"github.com/cognicore/techterms/pkg/techterms/report"
	"github.com/cognicore/techterms/pkg/techterms/store"
	"github.com/cognicore/techterms/pkg/techterms/store/sqlite"
)

func extractFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Directory of {Company}_job_description.txt/.html files",
		},
		&cli.StringFlag{
			Name:  "jsonl",
			Usage: "JSONL file of {company, filename, text} records (instead of --input)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory for reports",
			Value:   "output",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file; flags override it",
		},
		&cli.IntFlag{
			Name:  "min-sources",
			Usage: "Minimum distinct sources a term needs",
			Value: 2,
		},
		&cli.IntFlag{
			Name:  "clusters",
			Usage: "Fixed number of clusters (0 selects by silhouette)",
		},
		&cli.StringFlag{
			Name:  "vectors",
			Usage: "word2vec/GloVe text file used for embeddings",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "OpenAI-compatible embedding service URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
		&cli.StringFlag{
			Name:    "embedding-token",
			Usage:   "API token for the embedding service",
			EnvVars: []string{"TECHTERMS_EMBEDDING_TOKEN"},
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "Directory of the persistent embedding cache",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite database to record the run in",
		},
		&cli.StringFlag{
			Name:  "lexicon",
			Usage: "YAML file layered over the built-in lexicon",
		},
		&cli.IntFlag{
			Name:  "pool-size",
			Usage: "Extraction workers (0 uses half the CPUs)",
		},
	}
}

func extractCommand(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := extractConfig(c)
	if err != nil {
		return err
	}

	docs, err := readCorpus(c)
	if err != nil {
		return err
	}

	comp, err := (&config.Loader{Config: cfg}).Load()
	if err != nil {
		return err
	}
	defer comp.Close()
	if comp.Clusterer == nil {
		fmt.Fprintln(c.App.Writer, "No embedding provider configured (--vectors or --embedding-host); skipping clustering.")
	}

	var st store.Store
	if cfg.Database != "" {
		st, err = sqlite.OpenSQLite(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer st.Close()
	}

	engine, err := techterms.New(techterms.Options{
		Lexicon:    comp.Lexicon,
		Extractor:  comp.Extractor,
		Filter:     comp.Filter,
		Clusterer:  comp.Clusterer,
		Store:      st,
		MinSources: cfg.MinSources,
		Clusters:   cfg.Clusters,
		PoolSize:   cfg.PoolSize,
	})
	if err != nil {
		return err
	}
	defer engine.Release()

	res, err := engine.Run(ctx, docs)
	if err != nil {
		return err
	}

	writer := report.NewWriter(c.String("output"))
	written, err := writer.WriteAll(report.Input{
		Raw:        res.Raw,
		Filter:     res.Filter,
		Clustering: res.Clustering,
		Documents:  res.Documents,
		MinSources: cfg.MinSources,
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Processed %d documents from %d companies\n", res.Documents, len(res.Companies))
	fmt.Fprintf(out, "Candidates: %d, kept: %d, removed: %d\n",
		res.Raw.Len(), res.Filter.Kept.Len(), res.Filter.Removed.Len())
	if res.Clustering != nil {
		fmt.Fprintf(out, "Clusters: %d (silhouette %.4f), unclusterable: %d\n",
			res.Clustering.NumClusters, res.Clustering.SilhouetteScore, len(res.Clustering.Unclusterable))
	}
	if res.RunID != "" {
		fmt.Fprintf(out, "Run: %s\n", res.RunID)
	}
	for _, stem := range written {
		fmt.Fprintf(out, "Wrote %s.json/.txt\n", stem)
	}
	return nil
}

// extractConfig layers explicitly set flags over the config file.
func extractConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.IsSet("min-sources") {
		cfg.MinSources = c.Int("min-sources")
	}
	if c.IsSet("clusters") {
		cfg.Clusters = c.Int("clusters")
	}
	if c.IsSet("pool-size") {
		cfg.PoolSize = c.Int("pool-size")
	}
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"vectors", &cfg.Embedding.Vectors},
		{"embedding-host", &cfg.Embedding.Host},
		{"embedding-model", &cfg.Embedding.Model},
		{"embedding-token", &cfg.Embedding.Token},
		{"cache", &cfg.Embedding.Cache},
		{"db", &cfg.Database},
		{"lexicon", &cfg.Lexicon},
	}
	for _, o := range overrides {
		if v := c.String(o.flag); v != "" {
			*o.dst = v
		}
	}
	return cfg, cfg.Validate()
}

func readCorpus(c *cli.Context) ([]jobs.Description, error) {
	dir, jsonl := c.String("input"), c.String("jsonl")
	switch {
	case dir != "" && jsonl != "":
		return nil, fmt.Errorf("use either --input or --jsonl, not both")
	case dir != "":
		return jobs.ReadDir(dir)
	case jsonl != "":
		return jobs.LoadJSONL(jsonl)
	default:
		return nil, fmt.Errorf("--input or --jsonl is required")
	}
}
