package lexicon

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var defaultData embed.FS

// Lexicon holds the word lists that drive extraction, filtering, labeling
// and refinement:
//   - Gazetteers: common words, locations, protected technical terms
//   - Scanner vocabulary: all-caps stoplist, determiners, context phrases
//   - Filter vocabulary: company suffixes, tech prefixes/suffixes/phrases
//   - Anchors: ordered categories used to name clusters
//   - Refinement: normalization map, allowlist, blocklist
//
// A Lexicon is immutable once built and safe for concurrent reads.
type Lexicon struct {
	commonWords       map[string]struct{}
	locations         map[string]struct{}
	protected         map[string]struct{}
	allCapsStop       map[string]struct{}
	determiners       map[string]struct{}
	concatPrefixes    map[string]struct{}
	locationFragments map[string]struct{}
	allowlist         map[string]struct{}
	blocklist         map[string]struct{}

	contextPhrases  []string
	shortNames      []string
	companySuffixes []string
	companyCities   []string
	jobTitleWords   []string
	techSuffixes    []string
	techPrefixes    []string
	normalization   map[string]string
	anchors         []Anchor

	metadataPatterns []*regexp.Regexp
	techPhrases      []*regexp.Regexp
}

// Anchor is a named category of well-known terms.
type Anchor struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Data is the on-disk YAML shape. Every file may populate any subset of fields;
// lists from several files are concatenated.
type Data struct {
	CommonWords       []string          `yaml:"common_words"`
	Locations         []string          `yaml:"locations"`
	Protected         []string          `yaml:"protected"`
	AllCapsStoplist   []string          `yaml:"allcaps_stoplist"`
	Determiners       []string          `yaml:"determiners"`
	ContextPhrases    []string          `yaml:"context_phrases"`
	ShortNames        []string          `yaml:"short_names"`
	CompanySuffixes   []string          `yaml:"company_suffixes"`
	CompanyCities     []string          `yaml:"company_cities"`
	JobTitleWords     []string          `yaml:"job_title_words"`
	ConcatPrefixes    []string          `yaml:"concat_prefixes"`
	LocationFragments []string          `yaml:"location_fragments"`
	MetadataPatterns  []string          `yaml:"metadata_patterns"`
	TechSuffixes      []string          `yaml:"tech_suffixes"`
	TechPrefixes      []string          `yaml:"tech_prefixes"`
	TechPhrases       []string          `yaml:"tech_phrases"`
	Anchors           []Anchor          `yaml:"anchors"`
	Normalization     map[string]string `yaml:"normalization"`
	Allowlist         []string          `yaml:"allowlist"`
	Blocklist         []string          `yaml:"blocklist"`
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the built-in lexicon. It is parsed once per process.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		var data Data
		data, defaultErr = defaultFiles()
		if defaultErr != nil {
			return
		}
		defaultLex, defaultErr = Build(data)
	})
	if defaultErr != nil {
		// The embedded files are part of the binary; failing here is a build defect.
		panic(fmt.Sprintf("lexicon: embedded defaults: %v", defaultErr))
	}
	return defaultLex
}

func defaultFiles() (Data, error) {
	entries, err := defaultData.ReadDir("data")
	if err != nil {
		return Data{}, err
	}
	var merged Data
	for _, e := range entries {
		raw, err := defaultData.ReadFile("data/" + e.Name())
		if err != nil {
			return Data{}, err
		}
		var part Data
		if err := yaml.Unmarshal(raw, &part); err != nil {
			return Data{}, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		merged = merged.Merge(part)
	}
	return merged, nil
}

// LoadFromYAML loads extra entries from path and layers them over the
// built-in defaults.
//
// Expected format (any subset):
//
//	protected: [zig, nim]
//	locations: [gdansk]
//	anchors:
//	  - name: mobile
//	    terms: [swiftui, jetpack compose, flutter]
func LoadFromYAML(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var extra Data
	if err := yaml.Unmarshal(raw, &extra); err != nil {
		return nil, err
	}
	return Extend(extra)
}

// Extend layers extra over the built-in defaults.
func Extend(extra Data) (*Lexicon, error) {
	base, err := defaultFiles()
	if err != nil {
		return nil, err
	}
	return Build(base.Merge(extra))
}

// Merge concatenates list fields and overlays map fields of other onto d.
func (d Data) Merge(other Data) Data {
	out := Data{
		CommonWords:       concat(d.CommonWords, other.CommonWords),
		Locations:         concat(d.Locations, other.Locations),
		Protected:         concat(d.Protected, other.Protected),
		AllCapsStoplist:   concat(d.AllCapsStoplist, other.AllCapsStoplist),
		Determiners:       concat(d.Determiners, other.Determiners),
		ContextPhrases:    concat(d.ContextPhrases, other.ContextPhrases),
		ShortNames:        concat(d.ShortNames, other.ShortNames),
		CompanySuffixes:   concat(d.CompanySuffixes, other.CompanySuffixes),
		CompanyCities:     concat(d.CompanyCities, other.CompanyCities),
		JobTitleWords:     concat(d.JobTitleWords, other.JobTitleWords),
		ConcatPrefixes:    concat(d.ConcatPrefixes, other.ConcatPrefixes),
		LocationFragments: concat(d.LocationFragments, other.LocationFragments),
		MetadataPatterns:  concat(d.MetadataPatterns, other.MetadataPatterns),
		TechSuffixes:      concat(d.TechSuffixes, other.TechSuffixes),
		TechPrefixes:      concat(d.TechPrefixes, other.TechPrefixes),
		TechPhrases:       concat(d.TechPhrases, other.TechPhrases),
		Anchors:           mergeAnchors(d.Anchors, other.Anchors),
		Allowlist:         concat(d.Allowlist, other.Allowlist),
		Blocklist:         concat(d.Blocklist, other.Blocklist),
	}
	if len(d.Normalization)+len(other.Normalization) > 0 {
		out.Normalization = make(map[string]string, len(d.Normalization)+len(other.Normalization))
		for k, v := range d.Normalization {
			out.Normalization[k] = v
		}
		for k, v := range other.Normalization {
			out.Normalization[k] = v
		}
	}
	return out
}

// mergeAnchors appends terms to anchors that already exist (keeping their
// declaration position) and appends new anchors at the end.
func mergeAnchors(base, extra []Anchor) []Anchor {
	out := make([]Anchor, 0, len(base)+len(extra))
	index := make(map[string]int, len(base))
	for _, a := range base {
		index[a.Name] = len(out)
		out = append(out, Anchor{Name: a.Name, Terms: append([]string{}, a.Terms...)})
	}
	for _, a := range extra {
		if i, ok := index[a.Name]; ok {
			out[i].Terms = append(out[i].Terms, a.Terms...)
			continue
		}
		index[a.Name] = len(out)
		out = append(out, Anchor{Name: a.Name, Terms: append([]string{}, a.Terms...)})
	}
	return out
}

// Build compiles raw data into a Lexicon. Regular expressions are validated here.
func Build(d Data) (*Lexicon, error) {
	l := &Lexicon{
		commonWords:       lowerSet(d.CommonWords),
		locations:         lowerSet(d.Locations),
		protected:         lowerSet(d.Protected),
		allCapsStop:       upperSet(d.AllCapsStoplist),
		determiners:       lowerSet(d.Determiners),
		concatPrefixes:    lowerSet(d.ConcatPrefixes),
		locationFragments: lowerSet(d.LocationFragments),
		allowlist:         lowerSet(d.Allowlist),
		blocklist:         lowerSet(d.Blocklist),
		contextPhrases:    lowerList(d.ContextPhrases),
		shortNames:        dedupe(d.ShortNames),
		companySuffixes:   dedupe(d.CompanySuffixes),
		companyCities:     dedupe(d.CompanyCities),
		jobTitleWords:     lowerList(d.JobTitleWords),
		techSuffixes:      lowerList(d.TechSuffixes),
		techPrefixes:      lowerList(d.TechPrefixes),
		normalization:     make(map[string]string, len(d.Normalization)),
	}
	for k, v := range d.Normalization {
		l.normalization[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	for _, a := range d.Anchors {
		l.anchors = append(l.anchors, Anchor{Name: a.Name, Terms: lowerList(a.Terms)})
	}

	var err error
	if l.metadataPatterns, err = compileAll(d.MetadataPatterns); err != nil {
		return nil, fmt.Errorf("metadata_patterns: %w", err)
	}
	if l.techPhrases, err = compileAll(d.TechPhrases); err != nil {
		return nil, fmt.Errorf("tech_phrases: %w", err)
	}
	return l, nil
}

// IsCommonWord reports whether the lowercase term is a known non-technical word.
func (l *Lexicon) IsCommonWord(term string) bool { return has(l.commonWords, term) }

// IsLocation reports whether the term is a gazetteer location.
func (l *Lexicon) IsLocation(term string) bool { return has(l.locations, term) }

// IsProtected reports whether the term is known technical vocabulary.
func (l *Lexicon) IsProtected(term string) bool { return has(l.protected, term) }

// IsAllCapsStop reports whether an all-caps token is an ordinary English word.
func (l *Lexicon) IsAllCapsStop(token string) bool {
	_, ok := l.allCapsStop[token]
	return ok
}

// IsDeterminer reports whether word opens a phrase that should be discarded.
func (l *Lexicon) IsDeterminer(word string) bool { return has(l.determiners, word) }

// IsConcatPrefix reports whether a lowercase fragment commonly precedes a glued word.
func (l *Lexicon) IsConcatPrefix(fragment string) bool { return has(l.concatPrefixes, fragment) }

// IsLocationFragment reports whether the term is a neighbourhood nickname or place fragment.
func (l *Lexicon) IsLocationFragment(term string) bool { return has(l.locationFragments, term) }

// Allowed reports whether the term is on the refinement allowlist.
func (l *Lexicon) Allowed(term string) bool { return has(l.allowlist, term) }

// Blocked reports whether the term is on the refinement blocklist.
func (l *Lexicon) Blocked(term string) bool { return has(l.blocklist, term) }

// Normalize maps a spelling variant to its canonical keyword.
// Unknown terms are returned lowercased.
func (l *Lexicon) Normalize(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if canonical, ok := l.normalization[term]; ok {
		return canonical
	}
	return term
}

func (l *Lexicon) ContextPhrases() []string { return l.contextPhrases }
func (l *Lexicon) ShortNames() []string { return l.shortNames }
func (l *Lexicon) CompanySuffixes() []string { return l.companySuffixes }
func (l *Lexicon) CompanyCities() []string { return l.companyCities }
func (l *Lexicon) JobTitleWords() []string { return l.jobTitleWords }
func (l *Lexicon) TechSuffixes() []string { return l.techSuffixes }
func (l *Lexicon) TechPrefixes() []string { return l.techPrefixes }
func (l *Lexicon) Anchors() []Anchor { return l.anchors }
func (l *Lexicon) MetadataPatterns() []*regexp.Regexp { return l.metadataPatterns }

// MatchesTechPhrase reports whether the lowercase term contains a canonical
// multi-word technical phrase.
func (l *Lexicon) MatchesTechPhrase(term string) bool {
	term = strings.ToLower(term)
	for _, re := range l.techPhrases {
		if re.MatchString(term) {
			return true
		}
	}
	return false
}

// Stats returns the size of each word list.
func (l *Lexicon) Stats() Stats {
	return Stats{
		CommonWords: len(l.commonWords),
		Locations:   len(l.locations),
		Protected:   len(l.protected),
		Anchors:     len(l.anchors),
		Allowlist:   len(l.allowlist),
		Blocklist:   len(l.blocklist),
	}
}

// Stats holds lexicon list sizes.
type Stats struct {
	CommonWords int
	Locations   int
	Protected   int
	Anchors     int
	Allowlist   int
	Blocklist   int
}

func has(set map[string]struct{}, term string) bool {
	_, ok := set[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

func lowerSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

func upperSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

func lowerList(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return dedupe(out)
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func concat(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
