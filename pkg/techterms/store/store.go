package store

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/filter"
)

// Store persists extraction runs and answers history queries across them.
type Store interface {
	Close() error

	// Runs
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// Per-term history across runs, oldest first
	TermHistory(ctx context.Context, key string) ([]TermSnapshot, error)
}

// Term statuses.
const (
	StatusKept    = "kept"
	StatusRemoved = "removed"
)

// Run is one pipeline execution.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Documents  int
	MinSources int
	Terms      []TermRecord
	Clustering *cluster.Result // nil when clustering was skipped
}

// TermRecord is one aggregated candidate and its filter outcome.
type TermRecord struct {
	Key     string
	Term    string
	Count   int
	Sources []string
	Signals []string
	Forms   []string
	Status  string
	Reason  string // removal reason; empty when kept
}

// NumSources returns the number of distinct sources.
func (t TermRecord) NumSources() int { return len(t.Sources) }

// RunSummary is a run's headline numbers.
type RunSummary struct {
	ID          string
	CreatedAt   time.Time
	Documents   int
	MinSources  int
	Candidates  int
	Kept        int
	Removed     int
	NumClusters int
}

// TermSnapshot is a term's state in one run.
type TermSnapshot struct {
	RunID      string
	CreatedAt  time.Time
	Term       string
	Count      int
	NumSources int
	Status     string
	Reason     string
}

// Summary computes the headline numbers of r.
func (r Run) Summary() RunSummary {
	s := RunSummary{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		Documents:  r.Documents,
		MinSources: r.MinSources,
		Candidates: len(r.Terms),
	}
	for _, t := range r.Terms {
		if t.Status == StatusKept {
			s.Kept++
		} else {
			s.Removed++
		}
	}
	if r.Clustering != nil {
		s.NumClusters = r.Clustering.NumClusters
	}
	return s
}

// Snapshot extracts the TermSnapshot for key, if r has it.
func (r Run) Snapshot(key string) (TermSnapshot, bool) {
	for _, t := range r.Terms {
		if t.Key == key {
			return TermSnapshot{
				RunID:      r.ID,
				CreatedAt:  r.CreatedAt,
				Term:       t.Term,
				Count:      t.Count,
				NumSources: t.NumSources(),
				Status:     t.Status,
				Reason:     t.Reason,
			}, true
		}
	}
	return TermSnapshot{}, false
}

// Records flattens a filter partition into sorted TermRecords.
func Records(res filter.Result) []TermRecord {
	var out []TermRecord
	add := func(set *candidate.Set, status string) {
		if set == nil {
			return
		}
		for _, key := range set.Keys() {
			t, _ := set.Get(key)
			out = append(out, TermRecord{
				Key:     key,
				Term:    t.Term,
				Count:   t.Count,
				Sources: t.SourceList(),
				Signals: t.SignalList(),
				Forms:   t.Forms(),
				Status:  status,
				Reason:  string(res.Reasons[key]),
			})
		}
	}
	add(res.Kept, StatusKept)
	add(res.Removed, StatusRemoved)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a ULID for a run created at t. IDs generated within the
// same millisecond still sort in creation order.
func NewRunID(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}
