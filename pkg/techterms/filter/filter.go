// Package filter partitions aggregated candidates into kept and removed sets.
//
// Every candidate runs through an ordered cascade of checks; the first check
// that matches names the removal reason. Candidates matching none are kept.
package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// Reason explains why a candidate was removed.
type Reason string

// Removal reasons in cascade order.
const (
	ReasonNoisePattern  Reason = "noise_pattern"
	ReasonNumericOrDate Reason = "numeric_or_date"
	ReasonCompanyName   Reason = "company_name"
	ReasonLocation      Reason = "location"
	ReasonCommonWord    Reason = "common_word"
	ReasonLowFrequency  Reason = "low_frequency"
	ReasonTooShort      Reason = "too_short"
	ReasonTooLong       Reason = "too_long"
	ReasonNotTechTerm   Reason = "not_tech_term"
)

var (
	numericOnly = regexp.MustCompile(`^[\d,.\-/\s]+$`)
	magnitude   = regexp.MustCompile(`(?i)^\d+[KMB]$`)
)

// DefaultMinSources is the default minimum number of distinct sources.
const DefaultMinSources = 2

// MaxTermLength is the longest term kept.
const MaxTermLength = 50

// maxExemptLength bounds tech-patterned terms exempt from the source floor.
const maxExemptLength = 20

// Subject is the view of a candidate the checks evaluate.
type Subject struct {
	Key   string
	Term  string // canonical display form
	Lower string
	Rec   *candidate.Term
}

// Check is one cascade step.
type Check struct {
	Reason Reason
	Match  func(s Subject) bool
}

// Result is the partition produced by Apply.
type Result struct {
	Kept    *candidate.Set
	Removed *candidate.Set
	Reasons map[string]Reason // removed key -> reason
	Details map[string]string // removed key -> noise rule name, for noise_pattern removals
}

// ReasonCounts tallies removals per reason.
func (r Result) ReasonCounts() map[Reason]int {
	counts := make(map[Reason]int)
	for _, reason := range r.Reasons {
		counts[reason]++
	}
	return counts
}

// Filter applies the cascade using a read-only lexicon.
type Filter struct {
	lex    *lexicon.Lexicon
	noise  *noise
	logger *slog.Logger
}

// New builds a Filter. A nil lex uses lexicon.Default().
func New(lex *lexicon.Lexicon, logger *slog.Logger) *Filter {
	if lex == nil {
		lex = lexicon.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		lex:    lex,
		noise:  newNoise(lex),
		logger: logger.With("component", "filter"),
	}
}

// Checks returns the cascade for one run. companies are the known company
// identifiers of the corpus; minSources is the distinct-source floor.
func (f *Filter) Checks(companies []string, minSources int) []Check {
	names := companyTokens(companies)
	return []Check{
		{ReasonNoisePattern, func(s Subject) bool { return f.noise.Match(s.Term) != "" }},
		{ReasonNumericOrDate, func(s Subject) bool { return IsNumericOrDate(s.Term) }},
		{ReasonCompanyName, func(s Subject) bool {
			_, ok := names[s.Lower]
			return ok
		}},
		{ReasonLocation, func(s Subject) bool { return f.IsLocation(s.Lower) }},
		{ReasonCommonWord, func(s Subject) bool {
			return f.IsCommonWord(s.Lower) && !HasTechPattern(s.Term) && !f.lex.IsProtected(s.Lower)
		}},
		{ReasonLowFrequency, func(s Subject) bool {
			if s.Rec.NumSources() >= minSources || f.lex.IsProtected(s.Lower) {
				return false
			}
			return !(HasTechPattern(s.Term) && utf8.RuneCountInString(s.Term) <= maxExemptLength)
		}},
		{ReasonTooShort, func(s Subject) bool {
			return utf8.RuneCountInString(s.Term) < 2 && !f.lex.IsProtected(s.Lower)
		}},
		{ReasonTooLong, func(s Subject) bool { return utf8.RuneCountInString(s.Term) > MaxTermLength }},
		{ReasonNotTechTerm, func(s Subject) bool { return !f.IsLikelyTechTerm(s.Term) }},
	}
}

// Apply partitions set. set is not modified: records are copied and the
// copies receive their canonical display form. Every key of set lands in
// exactly one of Kept and Removed.
func (f *Filter) Apply(set *candidate.Set, companies []string, minSources int) Result {
	if minSources <= 0 {
		minSources = DefaultMinSources
	}
	res := Result{
		Kept:    candidate.NewSet(),
		Removed: candidate.NewSet(),
		Reasons: make(map[string]Reason),
		Details: make(map[string]string),
	}
	if set == nil {
		return res
	}
	checks := f.Checks(companies, minSources)

	for _, key := range set.Keys() {
		orig, _ := set.Get(key)
		rec := orig.Clone()
		rec.Term = strings.TrimSpace(CanonicalForm(rec.Forms(), rec.Term))

		s := Subject{Key: key, Term: rec.Term, Lower: strings.ToLower(rec.Term), Rec: rec}
		reason, removed := f.classify(s, checks)
		if !removed {
			res.Kept.Put(key, rec)
			continue
		}
		res.Removed.Put(key, rec)
		res.Reasons[key] = reason
		if reason == ReasonNoisePattern {
			res.Details[key] = f.noise.Match(rec.Term)
		}
	}

	f.logger.Debug("filtered candidates",
		"input", set.Len(), "kept", res.Kept.Len(), "removed", res.Removed.Len())
	return res
}

func (f *Filter) classify(s Subject, checks []Check) (Reason, bool) {
	for _, c := range checks {
		if c.Match(s) {
			return c.Reason, true
		}
	}
	return "", false
}

// Explain returns the removal reason term would receive as a single-source
// candidate, or "" when it would be kept.
func (f *Filter) Explain(term string, companies []string, minSources int) Reason {
	set := candidate.NewSet()
	set.Add(term, "explain", "explain")
	res := f.Apply(set, companies, minSources)
	return res.Reasons[candidate.Key(term)]
}

// IsNoise reports whether term matches a scraping-artifact signature.
func (f *Filter) IsNoise(term string) bool {
	return f.noise.Match(term) != ""
}

// IsLocation reports whether lower names a place. A multi-word term counts
// when every word is a location or common word and at least one is a location.
func (f *Filter) IsLocation(lower string) bool {
	lower = strings.TrimSpace(lower)
	if f.lex.IsLocation(lower) {
		return true
	}
	words := strings.Fields(lower)
	if len(words) < 2 {
		return false
	}
	sawLocation := false
	for _, w := range words {
		switch {
		case f.lex.IsLocation(w):
			sawLocation = true
		case f.lex.IsCommonWord(w):
		default:
			return false
		}
	}
	return sawLocation
}

// IsCommonWord reports whether lower is common English or job-posting
// boilerplate. Protected terms never are.
func (f *Filter) IsCommonWord(lower string) bool {
	lower = strings.TrimSpace(lower)
	if f.lex.IsProtected(lower) {
		return false
	}
	if f.lex.IsCommonWord(lower) {
		return true
	}
	words := strings.Fields(lower)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !f.lex.IsCommonWord(w) && !f.lex.IsLocation(w) {
			return false
		}
	}
	return true
}

// IsLikelyTechTerm is the final positive gate: the term must be protected,
// tech-patterned, carry a known tech prefix or suffix, or contain a
// canonical multi-word tech phrase.
func (f *Filter) IsLikelyTechTerm(term string) bool {
	lower := strings.ToLower(strings.TrimSpace(term))
	if f.lex.IsProtected(lower) || HasTechPattern(term) {
		return true
	}
	for _, suffix := range f.lex.TechSuffixes() {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return true
		}
	}
	for _, prefix := range f.lex.TechPrefixes() {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return f.lex.MatchesTechPhrase(lower)
}

// IsNumericOrDate reports whether term is a bare number, a date or year
// range, or a K/M/B-suffixed figure.
func IsNumericOrDate(term string) bool {
	term = strings.TrimSpace(term)
	return numericOnly.MatchString(term) ||
		yearRange.MatchString(term) ||
		slashDate.MatchString(term) ||
		magnitude.MatchString(term)
}

// companyTokens lowercases company identifiers and adds their words longer
// than two characters.
func companyTokens(companies []string) map[string]struct{} {
	names := make(map[string]struct{}, len(companies)*2)
	for _, c := range companies {
		lower := strings.ToLower(strings.TrimSpace(c))
		if lower == "" {
			continue
		}
		names[lower] = struct{}{}
		for _, w := range strings.Fields(lower) {
			if len(w) > 2 {
				names[w] = struct{}{}
			}
		}
	}
	return names
}
