package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cognicore/techterms/pkg/techterms/refine"
)

// RefinedKeywords is the stem of the refinement output.
const RefinedKeywords = "7_refined_keywords"

// ReadFilteredTerms returns the display terms of a 2_filtered_candidates.json
// file, in file order.
func ReadFilteredTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Candidates []struct {
			Term string `json:"term"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	terms := make([]string, 0, len(doc.Candidates))
	for _, c := range doc.Candidates {
		if c.Term != "" {
			terms = append(terms, c.Term)
		}
	}
	return terms, nil
}

// WriteRefined writes the outcome of a refinement pass.
func (w *Writer) WriteRefined(rep refine.Report) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	keywords := rep.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	lines := []string{
		"REFINED KEYWORDS",
		rule,
		fmt.Sprintf("Input terms: %d", rep.Input),
		fmt.Sprintf("After blocklist: %d", rep.Cleaned),
		fmt.Sprintf("Keywords: %d", len(keywords)),
		fmt.Sprintf("Reviewed: %t", rep.Reviewed),
		"",
		"KEYWORDS",
		subRule,
	}
	for _, k := range keywords {
		lines = append(lines, "  - "+k)
	}
	if len(rep.Rejected) > 0 {
		lines = append(lines, "", "REJECTED BY REVIEW", subRule)
		for _, k := range rep.Rejected {
			lines = append(lines, "  - "+k)
		}
	}

	data := map[string]any{
		"description": "Technical keywords normalized and filtered with the allowlist.",
		"count":       len(keywords),
		"keywords":    keywords,
		"input":       rep.Input,
		"cleaned":     rep.Cleaned,
		"reviewed":    rep.Reviewed,
	}
	if len(rep.Rejected) > 0 {
		data["rejected"] = rep.Rejected
	}
	return w.write(RefinedKeywords, data, lines)
}
