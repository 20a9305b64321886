package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/store"
)

func openTestStore(t *testing.T) (store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func sampleRun(id string, at time.Time) store.Run {
	return store.Run{
		ID:         id,
		CreatedAt:  at,
		Documents:  3,
		MinSources: 2,
		Terms: []store.TermRecord{
			{Key: "kubernetes", Term: "Kubernetes", Count: 4, Sources: []string{"Acme", "Globex", "Initech"}, Signals: []string{"context", "single_word"}, Forms: []string{"Kubernetes"}, Status: store.StatusKept},
			{Key: "python", Term: "Python", Count: 2, Sources: []string{"Acme", "Globex"}, Signals: []string{"single_word"}, Forms: []string{"Python", "python"}, Status: store.StatusKept},
			{Key: "san francisco", Term: "San Francisco", Count: 2, Sources: []string{"Acme"}, Signals: []string{"noun_phrase"}, Forms: []string{"San Francisco"}, Status: store.StatusRemoved, Reason: "location"},
		},
		Clustering: &cluster.Result{
			Clusters: []cluster.Cluster{
				{ID: 0, Terms: []string{"Kubernetes"}, SuggestedLabel: "Cloud Infrastructure", CentroidNearest: "Kubernetes"},
				{ID: 1, Terms: []string{"Python"}, SuggestedLabel: "Programming Languages", CentroidNearest: "Python"},
			},
			Unclusterable:   []string{"Kubeflow"},
			NumClusters:     2,
			SilhouetteScore: 0.4321,
			Algorithm:       cluster.Algorithm,
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	at := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)
	want := sampleRun(store.NewRunID(at), at)
	require.NoError(t, st.SaveRun(ctx, want))

	got, ok, err := st.GetRun(ctx, want.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.Documents, got.Documents)
	assert.Equal(t, want.MinSources, got.MinSources)
	assert.Equal(t, want.Terms, got.Terms)
	require.NotNil(t, got.Clustering)
	assert.Equal(t, *want.Clustering, *got.Clustering)
}

func TestGetRunMissing(t *testing.T) {
	st, _ := openTestStore(t)
	_, ok, err := st.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunWithoutClustering(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	run := sampleRun("no-clusters", time.Unix(1, 0))
	run.Clustering = nil
	require.NoError(t, st.SaveRun(ctx, run))

	got, ok, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Clustering)
	assert.Len(t, got.Terms, 3)
}

func TestSaveRunIsAtomic(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	run := sampleRun("atomic", time.Unix(1, 0))
	run.Terms = append(run.Terms, run.Terms[0]) // duplicate key violates the primary key
	require.Error(t, st.SaveRun(ctx, run))

	_, ok, err := st.GetRun(ctx, "atomic")
	require.NoError(t, err)
	assert.False(t, ok, "failed save must not leave a partial run")

	require.NoError(t, st.SaveRun(ctx, sampleRun("ok", time.Unix(2, 0))))
	assert.Error(t, st.SaveRun(ctx, sampleRun("ok", time.Unix(3, 0))), "duplicate run id")
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.SaveRun(ctx, sampleRun(store.NewRunID(at), at)))
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].CreatedAt.After(runs[1].CreatedAt))
	assert.Equal(t, 3, runs[0].Candidates)
	assert.Equal(t, 2, runs[0].Kept)
	assert.Equal(t, 1, runs[0].Removed)
	assert.Equal(t, 2, runs[0].NumClusters)

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTermHistory(t *testing.T) {
	ctx := context.Background()
	st, _ := openTestStore(t)

	first := sampleRun("r1", time.Unix(100, 0))
	second := sampleRun("r2", time.Unix(200, 0))
	second.Terms[1].Sources = []string{"Acme"}
	second.Terms[1].Status = store.StatusRemoved
	second.Terms[1].Reason = "low_frequency"
	require.NoError(t, st.SaveRun(ctx, second))
	require.NoError(t, st.SaveRun(ctx, first))

	hist, err := st.TermHistory(ctx, "python")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "r1", hist[0].RunID)
	assert.Equal(t, store.StatusKept, hist[0].Status)
	assert.Equal(t, 2, hist[0].NumSources)
	assert.Equal(t, "r2", hist[1].RunID)
	assert.Equal(t, "low_frequency", hist[1].Reason)
	assert.Equal(t, 1, hist[1].NumSources)

	hist, err = st.TermHistory(ctx, "cobol")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	st, path := openTestStore(t)
	require.NoError(t, st.SaveRun(ctx, sampleRun("persisted", time.Unix(5, 0))))
	require.NoError(t, st.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok, err := reopened.GetRun(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "runs.db")
	_, err := OpenSQLite(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrStoreUnavailable)
}
