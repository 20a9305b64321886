package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/filter"
	"github.com/cognicore/techterms/pkg/techterms/store/sqlite"
)

func runsCommand(c *cli.Context) error {
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, c.String("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, c.Int("limit"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(out, "%-26s  %-20s  %5s  %10s  %5s  %7s  %8s\n",
		"ID", "CREATED", "DOCS", "CANDIDATES", "KEPT", "REMOVED", "CLUSTERS")
	for _, r := range runs {
		fmt.Fprintf(out, "%-26s  %-20s  %5d  %10d  %5d  %7d  %8d\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Documents,
			r.Candidates, r.Kept, r.Removed, r.NumClusters)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, c.String("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	term := c.String("term")
	hist, err := st.TermHistory(ctx, candidate.Key(term))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(hist) == 0 {
		fmt.Fprintf(out, "%q does not appear in any run.\n", term)
		return nil
	}
	for _, h := range hist {
		status := h.Status
		if h.Reason != "" {
			status += " (" + h.Reason + ")"
		}
		fmt.Fprintf(out, "%s  %s  %s: %d occurrences, %d sources, %s\n",
			h.RunID, h.CreatedAt.UTC().Format(time.RFC3339), h.Term, h.Count, h.NumSources, status)
	}
	return nil
}

func explainCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one term is required")
	}
	lex, err := loadLexicon(c.String("lexicon"))
	if err != nil {
		return err
	}
	f := filter.New(lex, nil)

	companies := c.StringSlice("company")
	out := c.App.Writer
	for _, term := range c.Args().Slice() {
		reason := f.Explain(term, companies, c.Int("min-sources"))
		if reason == "" {
			fmt.Fprintf(out, "%s: kept\n", strings.TrimSpace(term))
			continue
		}
		fmt.Fprintf(out, "%s: removed (%s)\n", strings.TrimSpace(term), reason)
	}
	return nil
}
