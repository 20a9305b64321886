// Package extract finds candidate technical terms in preprocessed text.
//
// Six independent scanners run over the same text. Each returns the distinct
// substrings it recognized; the Extractor tags them with the scanner's signal
// name and hands them to a candidate.Set.
package extract

import (
	"log/slog"
	"strings"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// Signal names.
const (
	SignalCamelCase  = "camelcase"
	SignalAllCaps    = "allcaps"
	SignalSpecial    = "special_pattern"
	SignalNounPhrase = "noun_phrase"
	SignalContext    = "context"
	SignalSingleWord = "single_word"
)

// MinTermLength is the shortest hit any scanner emits.
const MinTermLength = 2

// Hit is one term found by one scanner.
type Hit struct {
	Term   string
	Signal string
}

// Scanner is a named extraction function.
type Scanner struct {
	Signal string
	Scan   func(text string) []string
}

// Extractor runs the scanner table over a document.
type Extractor struct {
	lex      *lexicon.Lexicon
	chunker  Chunker
	logger   *slog.Logger
	scanners []Scanner
	context  *contextScanner
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithChunker replaces the noun-phrase chunker.
func WithChunker(c Chunker) Option {
	return func(e *Extractor) { e.chunker = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New builds an Extractor over lex. A nil lex uses lexicon.Default().
func New(lex *lexicon.Lexicon, opts ...Option) *Extractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	e := &Extractor{
		lex:     lex,
		chunker: NewProseChunker(),
		logger:  slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.context = newContextScanner(lex.ContextPhrases())
	e.scanners = []Scanner{
		{Signal: SignalCamelCase, Scan: ScanCamelCase},
		{Signal: SignalAllCaps, Scan: e.scanAllCaps},
		{Signal: SignalSpecial, Scan: ScanSpecialPatterns},
		{Signal: SignalNounPhrase, Scan: e.scanNounPhrases},
		{Signal: SignalContext, Scan: e.context.scan},
		{Signal: SignalSingleWord, Scan: e.scanSingleWords},
	}
	return e
}

// Scanners returns the registered scanner table.
func (e *Extractor) Scanners() []Scanner {
	return e.scanners
}

// Extract returns every (term, signal) pair found in text. A term found by
// several scanners appears once per scanner.
func (e *Extractor) Extract(text string) []Hit {
	var hits []Hit
	for _, s := range e.scanners {
		for _, term := range s.Scan(text) {
			hits = append(hits, Hit{Term: term, Signal: s.Signal})
		}
	}
	return hits
}

// ExtractCandidates aggregates the hits of one document under source.
func (e *Extractor) ExtractCandidates(text, source string) *candidate.Set {
	set := candidate.NewSet()
	for _, h := range e.Extract(text) {
		set.Add(h.Term, h.Signal, source)
	}
	return set
}

func (e *Extractor) scanAllCaps(text string) []string {
	var out []string
	for _, m := range allCapsPattern.FindAllString(text, -1) {
		if e.lex.IsAllCapsStop(m) {
			continue
		}
		out = append(out, m)
	}
	return distinct(out)
}

func (e *Extractor) scanNounPhrases(text string) []string {
	if e.chunker == nil {
		return nil
	}
	chunks, err := e.chunker.Chunks(text)
	if err != nil {
		e.logger.Debug("noun chunking failed", "error", err)
		return nil
	}
	var out []string
	for _, phrase := range chunks {
		words := strings.Fields(phrase)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		if e.lex.IsDeterminer(words[0]) {
			continue
		}
		out = append(out, strings.Join(words, " "))
	}
	return distinct(out)
}

// distinct drops duplicates and too-short strings, keeping first-seen order.
func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if len(t) < MinTermLength {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
