package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "techterms",
		Usage: "Extract and cluster technical keywords from job descriptions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Extract, filter and cluster terms from a corpus and write reports",
				Action: extractCommand,
				Flags:  extractFlags(),
			},
			{
				Name:   "refine",
				Usage:  "Normalize filtered terms against the allowlist, optionally with LLM review",
				Action: refineCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to 2_filtered_candidates.json",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "output",
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "YAML config file supplying lexicon and review settings",
					},
					&cli.StringFlag{
						Name:  "lexicon",
						Usage: "YAML file layered over the built-in lexicon",
					},
					&cli.StringFlag{
						Name:  "review-endpoint",
						Usage: "Reviewer URL; a prompt endpoint, or a chat completion base URL with --review-model",
					},
					&cli.StringFlag{
						Name:    "review-api-key",
						Usage:   "Bearer token for the reviewer",
						EnvVars: []string{"TECHTERMS_REVIEW_API_KEY"},
					},
					&cli.StringFlag{
						Name:  "review-model",
						Usage: "Chat model used for review",
					},
				},
			},
			{
				Name:   "runs",
				Usage:  "List stored runs, newest first",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the SQLite run database",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum runs to list (0 lists all)",
						Value: 20,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show how a term fared across stored runs",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the SQLite run database",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "term",
						Aliases:  []string{"t"},
						Usage:    "Term to look up (case-insensitive)",
						Required: true,
					},
				},
			},
			{
				Name:      "explain",
				Usage:     "Show which filter rule a term would hit",
				ArgsUsage: "TERM...",
				Action:    explainCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "company",
						Usage: "Known company name (repeatable)",
					},
					&cli.IntFlag{
						Name:  "min-sources",
						Usage: "Minimum distinct sources a term needs",
						Value: 2,
					},
					&cli.StringFlag{
						Name:  "lexicon",
						Usage: "YAML file layered over the built-in lexicon",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
