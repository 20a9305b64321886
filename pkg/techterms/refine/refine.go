// Package refine post-processes filtered keywords with hand-curated lists
// and an optional reviewer.
package refine

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// cleanCutset is trimmed from both ends of a keyword before lookup.
const cleanCutset = " .,;:'\"()[]{}<>/-="

// Blocklist drops blocklisted keywords and case-insensitive duplicates.
type Blocklist struct {
	lex *lexicon.Lexicon
}

// NewBlocklist creates a Blocklist. A nil lex uses lexicon.Default().
func NewBlocklist(lex *lexicon.Lexicon) *Blocklist {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Blocklist{lex: lex}
}

// Apply returns the surviving keywords in their first-seen spelling, sorted
// case-insensitively.
func (b *Blocklist) Apply(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		lower := strings.ToLower(term)
		if term == "" || b.lex.Blocked(lower) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, term)
	}
	sortFold(out)
	return out
}

// Allowlist keeps only keywords whose normalized form is allowlisted.
type Allowlist struct {
	lex *lexicon.Lexicon
}

// NewAllowlist creates an Allowlist. A nil lex uses lexicon.Default().
func NewAllowlist(lex *lexicon.Lexicon) *Allowlist {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Allowlist{lex: lex}
}

// Canonical returns the normalized allowlist entry for term. The lowercase
// term is tried first, then the term with punctuation trimmed from its ends.
func (a *Allowlist) Canonical(term string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(term))
	for _, key := range []string{lower, strings.Trim(lower, cleanCutset)} {
		if key == "" {
			continue
		}
		if n := a.lex.Normalize(key); a.lex.Allowed(n) {
			return n, true
		}
	}
	return "", false
}

// Apply keeps one spelling per canonical keyword, preferring the shortest
// (first on ties), and sorts the result case-insensitively.
func (a *Allowlist) Apply(terms []string) []string {
	best := make(map[string]string)
	var order []string
	for _, term := range terms {
		term = strings.TrimSpace(term)
		canonical, ok := a.Canonical(term)
		if !ok {
			continue
		}
		cur, seen := best[canonical]
		if !seen {
			order = append(order, canonical)
		}
		if !seen || utf8.RuneCountInString(term) < utf8.RuneCountInString(cur) {
			best[canonical] = term
		}
	}

	out := make([]string, 0, len(order))
	for _, canonical := range order {
		out = append(out, best[canonical])
	}
	sortFold(out)
	return out
}

// Refiner chains the blocklist, the allowlist and an optional reviewer.
type Refiner struct {
	Blocklist *Blocklist
	Allowlist *Allowlist
	Reviewer  Reviewer
	Logger    *slog.Logger
}

// NewRefiner builds a Refiner over lex. reviewer may be nil.
func NewRefiner(lex *lexicon.Lexicon, reviewer Reviewer) *Refiner {
	return &Refiner{
		Blocklist: NewBlocklist(lex),
		Allowlist: NewAllowlist(lex),
		Reviewer:  reviewer,
		Logger:    slog.Default().With("component", "refiner"),
	}
}

// Report summarizes one refinement pass.
type Report struct {
	Input    int      `json:"input"`
	Cleaned  int      `json:"cleaned"`
	Keywords []string `json:"keywords"`
	Rejected []string `json:"rejected,omitempty"`
	Reviewed bool     `json:"reviewed"`
}

// Run refines terms.
func (r *Refiner) Run(ctx context.Context, terms []string) Report {
	cleaned := r.Blocklist.Apply(terms)
	allowed := r.Allowlist.Apply(cleaned)
	rep := Report{Input: len(terms), Cleaned: len(cleaned), Keywords: allowed}

	if r.Reviewer != nil {
		rep.Keywords, rep.Rejected = Review(ctx, r.Reviewer, allowed, r.Logger)
		rep.Reviewed = true
	}
	r.Logger.Info("refined keywords",
		"input", rep.Input,
		"cleaned", rep.Cleaned,
		"kept", len(rep.Keywords),
		"rejected", len(rep.Rejected))
	return rep
}

func sortFold(terms []string) {
	slices.SortStableFunc(terms, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
}
