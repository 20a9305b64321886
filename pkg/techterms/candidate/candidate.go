// Package candidate aggregates extraction hits into corpus-wide term records.
package candidate

import (
	"sort"
	"strings"
)

// Term is the aggregated record for one lowercase key.
type Term struct {
	Term          string              // display form
	OriginalForms map[string]struct{} // every surface spelling seen
	Sources       map[string]struct{} // distinct company identifiers
	Count         int                 // raw hits across documents and signals
	Signals       map[string]struct{} // scanners that found it
}

// NumSources returns the number of distinct sources.
func (t *Term) NumSources() int { return len(t.Sources) }

// Forms returns the original forms sorted.
func (t *Term) Forms() []string { return sortedKeys(t.OriginalForms) }

// SourceList returns the sources sorted.
func (t *Term) SourceList() []string { return sortedKeys(t.Sources) }

// SignalList returns the signals sorted.
func (t *Term) SignalList() []string { return sortedKeys(t.Signals) }

// Clone returns a deep copy.
func (t *Term) Clone() *Term {
	return &Term{
		Term:          t.Term,
		OriginalForms: cloneSet(t.OriginalForms),
		Sources:       cloneSet(t.Sources),
		Count:         t.Count,
		Signals:       cloneSet(t.Signals),
	}
}

// absorb folds other into t. The display form is the lexicographically
// smaller of the two so that merge order cannot change it.
func (t *Term) absorb(other *Term) {
	if other.Term < t.Term {
		t.Term = other.Term
	}
	union(t.OriginalForms, other.OriginalForms)
	union(t.Sources, other.Sources)
	union(t.Signals, other.Signals)
	t.Count += other.Count
}

// Key normalizes a surface form to its map key.
func Key(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Set is aggregator state keyed by Key(term).
type Set struct {
	terms map[string]*Term
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{terms: make(map[string]*Term)}
}

// Add records one hit. Hits shorter than two characters are ignored.
func (s *Set) Add(hit, signal, source string) {
	hit = strings.TrimSpace(hit)
	if len(hit) < 2 {
		return
	}
	key := Key(hit)
	rec, ok := s.terms[key]
	if !ok {
		rec = &Term{
			Term:          hit,
			OriginalForms: make(map[string]struct{}),
			Sources:       make(map[string]struct{}),
			Signals:       make(map[string]struct{}),
		}
		s.terms[key] = rec
	} else if hit < rec.Term {
		rec.Term = hit
	}
	rec.OriginalForms[hit] = struct{}{}
	rec.Sources[source] = struct{}{}
	rec.Signals[signal] = struct{}{}
	rec.Count++
}

// Put stores a record under its key, replacing any existing one.
func (s *Set) Put(key string, t *Term) {
	s.terms[key] = t
}

// Merge folds other into s. Merge is associative and commutative: any
// grouping or order of merges over the same inputs yields an equal Set.
// other is not modified.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for key, rec := range other.terms {
		if mine, ok := s.terms[key]; ok {
			mine.absorb(rec)
			continue
		}
		s.terms[key] = rec.Clone()
	}
}

// MergeAll folds sets into a fresh Set.
func MergeAll(sets ...*Set) *Set {
	out := NewSet()
	for _, s := range sets {
		out.Merge(s)
	}
	return out
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := &Set{terms: make(map[string]*Term, len(s.terms))}
	for k, v := range s.terms {
		out.terms[k] = v.Clone()
	}
	return out
}

// Get returns the record for key.
func (s *Set) Get(key string) (*Term, bool) {
	t, ok := s.terms[key]
	return t, ok
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.terms) }

// Keys returns all keys sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.terms))
	for k := range s.terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry pairs a key with its record.
type Entry struct {
	Key  string
	Term *Term
}

// Sorted returns records ordered by source count desc, then count desc, then key.
func (s *Set) Sorted() []Entry {
	entries := make([]Entry, 0, len(s.terms))
	for k, v := range s.terms {
		entries = append(entries, Entry{Key: k, Term: v})
	}
	SortEntries(entries)
	return entries
}

// SortEntries orders entries by source count desc, then count desc, then key.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Term, entries[j].Term
		if len(a.Sources) != len(b.Sources) {
			return len(a.Sources) > len(b.Sources)
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return entries[i].Key < entries[j].Key
	})
}

// Equal reports whether two sets hold identical records.
func Equal(a, b *Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	for k, x := range a.terms {
		y, ok := b.terms[k]
		if !ok {
			return false
		}
		if x.Term != y.Term || x.Count != y.Count ||
			!setEqual(x.OriginalForms, y.OriginalForms) ||
			!setEqual(x.Sources, y.Sources) ||
			!setEqual(x.Signals, y.Signals) {
			return false
		}
	}
	return true
}

func union(dst, src map[string]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(src))
	union(out, src)
	return out
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
