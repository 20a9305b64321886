package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun stores a copy of r. Run IDs are write-once.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("save run: empty id: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[r.ID]; exists {
		return fmt.Errorf("save run %s: already exists: %w", r.ID, internalerr.ErrInvalidInput)
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, false, nil
	}
	return copyRun(r), true, nil
}

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.RunSummary, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TermHistory returns the term's snapshots across runs, oldest first.
func (s *Store) TermHistory(ctx context.Context, key string) ([]store.TermSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.TermSnapshot
	for _, r := range s.runs {
		if snap, ok := r.Snapshot(key); ok {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

func copyRun(r store.Run) store.Run {
	out := r
	out.Terms = make([]store.TermRecord, len(r.Terms))
	for i, t := range r.Terms {
		t.Sources = append([]string(nil), t.Sources...)
		t.Signals = append([]string(nil), t.Signals...)
		t.Forms = append([]string(nil), t.Forms...)
		out.Terms[i] = t
	}
	if r.Clustering != nil {
		c := *r.Clustering
		c.Unclusterable = append([]string(nil), c.Unclusterable...)
		c.Clusters = make([]cluster.Cluster, len(r.Clustering.Clusters))
		for i, cl := range r.Clustering.Clusters {
			cl.Terms = append([]string(nil), cl.Terms...)
			c.Clusters[i] = cl
		}
		out.Clustering = &c
	}
	return out
}
