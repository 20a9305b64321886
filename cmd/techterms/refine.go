package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cognicore/techterms/internal/llm"
	"github.com/cognicore/techterms/pkg/techterms/config"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
	"github.com/cognicore/techterms/pkg/techterms/refine"
	"github.com/cognicore/techterms/pkg/techterms/report"
)

func refineCommand(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if v := c.String("lexicon"); v != "" {
		cfg.Lexicon = v
	}
	review := cfg.Review
	if v := c.String("review-endpoint"); v != "" {
		review.Endpoint = v
	}
	if v := c.String("review-api-key"); v != "" {
		review.APIKey = v
	}
	if v := c.String("review-model"); v != "" {
		review.Model = v
	}

	lex, err := loadLexicon(cfg.Lexicon)
	if err != nil {
		return err
	}

	terms, err := report.ReadFilteredTerms(c.String("input"))
	if err != nil {
		return fmt.Errorf("read filtered candidates: %w", err)
	}

	refiner := refine.NewRefiner(lex, reviewer(review))
	rep := refiner.Run(ctx, terms)

	writer := report.NewWriter(c.String("output"))
	if err := writer.WriteRefined(rep); err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Input terms: %d, after blocklist: %d, keywords: %d\n", rep.Input, rep.Cleaned, len(rep.Keywords))
	if rep.Reviewed {
		fmt.Fprintf(out, "Rejected by review: %d\n", len(rep.Rejected))
	}
	fmt.Fprintf(out, "Wrote %s.json/.txt\n", report.RefinedKeywords)
	return nil
}

// reviewer picks the chat reviewer when a model is named, the prompt
// reviewer when only an endpoint is given, and none otherwise.
func reviewer(cfg config.Review) refine.Reviewer {
	switch {
	case cfg.Endpoint == "":
		return nil
	case cfg.Model != "":
		return &refine.ChatReviewer{Client: &llm.Client{
			BaseURL: cfg.Endpoint,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
		}}
	default:
		return &refine.PromptReviewer{Endpoint: cfg.Endpoint, APIKey: cfg.APIKey}
	}
}

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		return lexicon.Default(), nil
	}
	lex, err := lexicon.LoadFromYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	return lex, nil
}
