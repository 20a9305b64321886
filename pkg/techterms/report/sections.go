package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/filter"
)

// ReviewCategories seed the manual review template.
var ReviewCategories = []string{
	"Programming Languages",
	"Frameworks/Libraries",
	"Databases",
	"Cloud/Infrastructure",
	"DevOps/Tools",
	"Methodologies/Practices",
	"Concepts/Domains",
	"Uncategorized",
}

const reviewInstructions = "Assign each term to a category by filling in the 'category' field. Add new categories to the list as needed."

type rawCandidate struct {
	Term          string   `json:"term"`
	Count         int      `json:"count"`
	NumSources    int      `json:"num_sources"`
	Sources       []string `json:"sources"`
	Signals       []string `json:"signals"`
	OriginalForms []string `json:"original_forms"`
}

type filteredCandidate struct {
	Term       string   `json:"term"`
	Count      int      `json:"count"`
	NumSources int      `json:"num_sources"`
	Sources    []string `json:"sources"`
}

type removedCandidate struct {
	Term       string `json:"term"`
	Count      int    `json:"count"`
	NumSources int    `json:"num_sources"`
	Reason     string `json:"reason"`
	Rule       string `json:"rule,omitempty"`
}

type termCount struct {
	Term       string `json:"term"`
	Count      int    `json:"count"`
	NumSources int    `json:"num_sources"`
}

type reviewTerm struct {
	Term       string `json:"term"`
	Count      int    `json:"count"`
	NumSources int    `json:"num_sources"`
	Category   string `json:"category"`
}

type clusterEntry struct {
	ID              int      `json:"cluster_id"`
	SuggestedLabel  string   `json:"suggested_label"`
	Terms           []string `json:"terms"`
	CentroidNearest string   `json:"centroid_nearest"`
	TermCount       int      `json:"term_count"`
}

type companyTerms struct {
	AllTerms  []string `json:"all_terms"`
	TermCount int      `json:"term_count"`
}

type companyCount struct {
	Company   string `json:"company"`
	TermCount int    `json:"term_count"`
}

// WriteRaw writes every aggregated candidate before filtering.
func (w *Writer) WriteRaw(set *candidate.Set, documents int) error {
	entries := sorted(set)
	date := w.date()

	out := make([]rawCandidate, 0, len(entries))
	lines := []string{
		"RAW CANDIDATES EXTRACTED",
		rule,
		fmt.Sprintf("Total candidates extracted: %d", len(entries)),
		fmt.Sprintf("Source files processed: %d", documents),
		fmt.Sprintf("Extraction date: %s", date),
		"",
		"CANDIDATES (sorted by frequency)",
		subRule,
		"",
	}
	for _, e := range entries {
		t := e.Term
		out = append(out, rawCandidate{
			Term:          t.Term,
			Count:         t.Count,
			NumSources:    t.NumSources(),
			Sources:       t.SourceList(),
			Signals:       t.SignalList(),
			OriginalForms: t.Forms(),
		})
		lines = append(lines,
			occurrences(t),
			"  Signals: "+strings.Join(t.SignalList(), ", "),
			"")
	}

	return w.write(RawCandidates, map[string]any{
		"metadata": map[string]any{
			"total_extracted": len(entries),
			"extraction_date": date,
			"source_files":    documents,
		},
		"candidates": out,
	}, lines)
}

// WriteFiltered writes the kept partition plus every removal with its reason.
func (w *Writer) WriteFiltered(res filter.Result, minSources int) error {
	kept := sorted(res.Kept)
	removed := sorted(res.Removed)

	candidates := make([]filteredCandidate, 0, len(kept))
	lines := []string{
		"FILTERED CANDIDATES",
		rule,
		fmt.Sprintf("Total after filtering: %d", len(kept)),
		fmt.Sprintf("Total removed: %d", len(removed)),
		fmt.Sprintf("Min occurrences threshold: %d", minSources),
		"",
		"CANDIDATES (sorted by frequency)",
		subRule,
		"",
	}
	for _, e := range kept {
		t := e.Term
		candidates = append(candidates, filteredCandidate{
			Term:       t.Term,
			Count:      t.Count,
			NumSources: t.NumSources(),
			Sources:    t.SourceList(),
		})
		lines = append(lines, occurrences(t))
	}

	removals := make([]removedCandidate, 0, len(removed))
	for _, e := range removed {
		t := e.Term
		removals = append(removals, removedCandidate{
			Term:       t.Term,
			Count:      t.Count,
			NumSources: t.NumSources(),
			Reason:     string(res.Reasons[e.Key]),
			Rule:       res.Details[e.Key],
		})
	}

	counts := res.ReasonCounts()
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	byReason := newOrderedObject()
	if len(reasons) > 0 {
		lines = append(lines, "", "REMOVED BY REASON", subRule)
	}
	for _, r := range reasons {
		n := counts[filter.Reason(r)]
		byReason.Set(r, n)
		lines = append(lines, fmt.Sprintf("  %s: %d", r, n))
	}

	return w.write(FilteredCandidates, map[string]any{
		"metadata": map[string]any{
			"total_after_filtering": len(kept),
			"total_removed":         len(removed),
			"filtering_criteria": map[string]any{
				"min_occurrences":        minSources,
				"removed_common_english": true,
				"removed_company_names":  true,
				"removed_locations":      true,
			},
			"removed_by_reason": byReason,
		},
		"candidates": candidates,
		"removed":    removals,
	}, lines)
}

// WriteClusters writes the clustering outcome.
func (w *Writer) WriteClusters(res cluster.Result) error {
	unclusterable := append([]string(nil), res.Unclusterable...)
	sort.Strings(unclusterable)
	score := strconv.FormatFloat(res.SilhouetteScore, 'f', -1, 64)

	clusters := make([]clusterEntry, 0, len(res.Clusters))
	lines := []string{
		"CLUSTERED KEYWORDS",
		rule,
		"Algorithm: " + res.Algorithm,
		fmt.Sprintf("Number of clusters: %d", res.NumClusters),
		"Silhouette score: " + score,
		fmt.Sprintf("Unclusterable terms: %d", len(unclusterable)),
		"",
		"CLUSTERS",
		subRule,
		"",
	}
	for _, c := range res.Clusters {
		terms := c.Terms
		if terms == nil {
			terms = []string{}
		}
		clusters = append(clusters, clusterEntry{
			ID:              c.ID,
			SuggestedLabel:  c.SuggestedLabel,
			Terms:           terms,
			CentroidNearest: c.CentroidNearest,
			TermCount:       len(terms),
		})
		lines = append(lines,
			fmt.Sprintf("Cluster %d: %s", c.ID, c.SuggestedLabel),
			"  Central term: "+c.CentroidNearest,
			fmt.Sprintf("  Terms (%d):", len(terms)))
		for _, term := range terms {
			lines = append(lines, "    - "+term)
		}
		lines = append(lines, "")
	}
	if len(unclusterable) > 0 {
		lines = append(lines, "", "UNCLUSTERABLE TERMS (no valid embeddings)", subRule)
		for _, term := range unclusterable {
			lines = append(lines, "  - "+term)
		}
	}
	if unclusterable == nil {
		unclusterable = []string{}
	}

	return w.write(ClusteredKeywords, map[string]any{
		"metadata": map[string]any{
			"algorithm":           res.Algorithm,
			"num_clusters":        res.NumClusters,
			"silhouette_score":    res.SilhouetteScore,
			"unclusterable_count": len(unclusterable),
		},
		"clusters":      clusters,
		"unclusterable": unclusterable,
	}, lines)
}

// WriteReviewTemplate writes a blank categorization sheet for the kept terms.
func (w *Writer) WriteReviewTemplate(set *candidate.Set) error {
	entries := sorted(set)

	terms := make([]reviewTerm, 0, len(entries))
	lines := []string{
		"MANUAL REVIEW TEMPLATE",
		rule,
		"",
		"Instructions:",
		"Assign each term below to one of the categories.",
		"Add new categories as needed.",
		"",
		"Categories:",
	}
	for _, c := range ReviewCategories {
		lines = append(lines, "  - "+c)
	}
	lines = append(lines,
		"",
		"TERMS TO CATEGORIZE",
		subRule,
		"",
		"Format: TERM (count, sources) -> CATEGORY",
		"")
	for _, e := range entries {
		t := e.Term
		terms = append(terms, reviewTerm{Term: t.Term, Count: t.Count, NumSources: t.NumSources()})
		lines = append(lines, fmt.Sprintf("%s (%d, %d sources) -> ", t.Term, t.Count, t.NumSources()))
	}

	return w.write(ReviewTemplate, map[string]any{
		"instructions": reviewInstructions,
		"categories":   ReviewCategories,
		"terms":        terms,
	}, lines)
}

// WriteByCompany groups kept terms under each source company.
func (w *Writer) WriteByCompany(set *candidate.Set) error {
	companies := groupByCompany(set)

	obj := newOrderedObject()
	lines := []string{
		"TERMS BY COMPANY",
		rule,
		fmt.Sprintf("Total companies: %d", len(companies)),
		"",
		"COMPANIES (sorted by term count)",
		subRule,
		"",
	}
	for _, c := range companies {
		obj.Set(c.name, companyTerms{AllTerms: c.terms, TermCount: len(c.terms)})
		lines = append(lines, fmt.Sprintf("%s (%d terms)", c.name, len(c.terms)))
		for _, term := range c.terms {
			lines = append(lines, "  - "+term)
		}
		lines = append(lines, "")
	}
	return w.write(ByCompany, obj, lines)
}

// Frequency buckets over source counts, highest first.
var buckets = []struct {
	name string
	min  int
}{
	{"50+", 50},
	{"20-49", 20},
	{"10-19", 10},
	{"5-9", 5},
	{"2-4", 2},
	{"1", 0},
}

// WriteSummary writes headline statistics for the kept terms.
func (w *Writer) WriteSummary(set *candidate.Set, documents int) error {
	entries := sorted(set)
	date := w.date()

	top := entries
	if len(top) > 20 {
		top = top[:20]
	}
	topTerms := make([]termCount, 0, len(top))
	for _, e := range top {
		topTerms = append(topTerms, termCount{Term: e.Term.Term, Count: e.Term.Count, NumSources: e.Term.NumSources()})
	}

	counts := make([]int, len(buckets))
	for _, e := range entries {
		n := e.Term.NumSources()
		for i, b := range buckets {
			if n >= b.min {
				counts[i]++
				break
			}
		}
	}
	bucketObj := newOrderedObject()
	for i, b := range buckets {
		bucketObj.Set(b.name, counts[i])
	}

	companies := groupByCompany(set)
	if len(companies) > 10 {
		companies = companies[:10]
	}
	topCompanies := make([]companyCount, 0, len(companies))
	for _, c := range companies {
		topCompanies = append(topCompanies, companyCount{Company: c.name, TermCount: len(c.terms)})
	}

	lines := []string{
		"SUMMARY STATISTICS",
		rule,
		fmt.Sprintf("Files processed: %d", documents),
		fmt.Sprintf("Unique terms extracted: %d", len(entries)),
		"Date: " + date,
		"",
		"TOP 20 TERMS",
		subRule,
	}
	for i, t := range topTerms {
		lines = append(lines, fmt.Sprintf("  %2d. %s (%d occurrences, %d sources)", i+1, t.Term, t.Count, t.NumSources))
	}
	lines = append(lines, "", "TERMS BY FREQUENCY (number of sources)", subRule)
	for i, b := range buckets {
		lines = append(lines, fmt.Sprintf("  %s: %d terms", b.name, counts[i]))
	}
	lines = append(lines, "", "TOP 10 COMPANIES BY TERM COUNT", subRule)
	for _, c := range topCompanies {
		lines = append(lines, fmt.Sprintf("  %s: %d terms", c.Company, c.TermCount))
	}

	return w.write(SummaryStats, map[string]any{
		"total_files_processed":     documents,
		"total_unique_terms":        len(entries),
		"extraction_date":           date,
		"top_20_terms":              topTerms,
		"terms_by_frequency_bucket": bucketObj,
		"companies_with_most_terms": topCompanies,
	}, lines)
}

type companyGroup struct {
	name  string
	terms []string
}

// groupByCompany returns companies ordered by term count desc, then name.
func groupByCompany(set *candidate.Set) []companyGroup {
	byName := make(map[string]map[string]struct{})
	for _, e := range sorted(set) {
		for _, src := range e.Term.SourceList() {
			if byName[src] == nil {
				byName[src] = make(map[string]struct{})
			}
			byName[src][e.Term.Term] = struct{}{}
		}
	}

	groups := make([]companyGroup, 0, len(byName))
	for name, terms := range byName {
		list := make([]string, 0, len(terms))
		for t := range terms {
			list = append(list, t)
		}
		sort.Strings(list)
		groups = append(groups, companyGroup{name: name, terms: list})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].terms) != len(groups[j].terms) {
			return len(groups[i].terms) > len(groups[j].terms)
		}
		return groups[i].name < groups[j].name
	})
	return groups
}

func sorted(set *candidate.Set) []candidate.Entry {
	if set == nil {
		return nil
	}
	return set.Sorted()
}

func occurrences(t *candidate.Term) string {
	return fmt.Sprintf("%s (%d occurrences, %d sources)", t.Term, t.Count, t.NumSources())
}
