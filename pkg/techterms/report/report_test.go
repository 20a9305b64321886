package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/filter"
	"github.com/cognicore/techterms/pkg/techterms/refine"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()
	w := NewWriter(filepath.Join(t.TempDir(), "out"))
	w.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return w
}

func testInput() Input {
	raw := candidate.NewSet()
	for _, src := range []string{"Acme", "Globex", "Initech"} {
		raw.Add("Kubernetes", "context", src)
	}
	raw.Add("kubernetes", "single_word", "Acme")
	raw.Add("Python", "single_word", "Acme")
	raw.Add("Python", "single_word", "Globex")
	raw.Add("Boston", "noun_phrase", "Acme")

	kept := candidate.NewSet()
	removed := candidate.NewSet()
	for _, key := range raw.Keys() {
		rec, _ := raw.Get(key)
		if key == "boston" {
			removed.Put(key, rec.Clone())
		} else {
			kept.Put(key, rec.Clone())
		}
	}

	return Input{
		Raw: raw,
		Filter: filter.Result{
			Kept:    kept,
			Removed: removed,
			Reasons: map[string]filter.Reason{"boston": filter.ReasonLocation},
			Details: map[string]string{},
		},
		Clustering: &cluster.Result{
			Clusters: []cluster.Cluster{
				{ID: 0, Terms: []string{"Kubernetes"}, SuggestedLabel: "Cloud Infrastructure", CentroidNearest: "Kubernetes"},
				{ID: 1, Terms: []string{"Python"}, SuggestedLabel: "Programming Languages", CentroidNearest: "Python"},
			},
			Unclusterable:   []string{"Zeta", "Alpha"},
			NumClusters:     2,
			SilhouetteScore: 0.5,
			Algorithm:       cluster.Algorithm,
		},
		Documents:  3,
		MinSources: 2,
	}
}

func readJSON(t *testing.T, w *Writer, stem string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Dir, stem+".json"))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readText(t *testing.T, w *Writer, stem string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Dir, stem+".txt"))
	require.NoError(t, err)
	return string(data)
}

func TestWriteAll(t *testing.T) {
	w := testWriter(t)
	written, err := w.WriteAll(testInput())
	require.NoError(t, err)
	assert.Equal(t, []string{RawCandidates, FilteredCandidates, ClusteredKeywords, ReviewTemplate, ByCompany, SummaryStats}, written)

	for _, stem := range written {
		assert.FileExists(t, filepath.Join(w.Dir, stem+".json"))
		assert.FileExists(t, filepath.Join(w.Dir, stem+".txt"))
	}
}

func TestWriteAllSkipsMissingClustering(t *testing.T) {
	w := testWriter(t)
	in := testInput()
	in.Clustering = nil

	written, err := w.WriteAll(in)
	require.NoError(t, err)
	assert.NotContains(t, written, ClusteredKeywords)
	assert.NoFileExists(t, filepath.Join(w.Dir, ClusteredKeywords+".json"))
}

func TestRawCandidates(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	doc := readJSON(t, w, RawCandidates)
	meta := doc["metadata"].(map[string]any)
	assert.EqualValues(t, 3, meta["total_extracted"])
	assert.EqualValues(t, 3, meta["source_files"])
	assert.Equal(t, "2025-06-01", meta["extraction_date"])

	cands := doc["candidates"].([]any)
	require.Len(t, cands, 3)
	first := cands[0].(map[string]any)
	assert.Equal(t, "Kubernetes", first["term"])
	assert.EqualValues(t, 4, first["count"])
	assert.EqualValues(t, 3, first["num_sources"])
	assert.Equal(t, []any{"context", "single_word"}, first["signals"])
	assert.Equal(t, []any{"Kubernetes", "kubernetes"}, first["original_forms"])

	text := readText(t, w, RawCandidates)
	assert.True(t, strings.HasPrefix(text, "RAW CANDIDATES EXTRACTED\n"+rule))
	assert.Contains(t, text, "Kubernetes (4 occurrences, 3 sources)\n  Signals: context, single_word")
}

func TestFilteredCandidates(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	doc := readJSON(t, w, FilteredCandidates)
	meta := doc["metadata"].(map[string]any)
	assert.EqualValues(t, 2, meta["total_after_filtering"])
	assert.EqualValues(t, 1, meta["total_removed"])
	assert.EqualValues(t, 2, meta["filtering_criteria"].(map[string]any)["min_occurrences"])
	assert.Equal(t, map[string]any{"location": float64(1)}, meta["removed_by_reason"])

	removed := doc["removed"].([]any)
	require.Len(t, removed, 1)
	assert.Equal(t, "Boston", removed[0].(map[string]any)["term"])
	assert.Equal(t, "location", removed[0].(map[string]any)["reason"])
	assert.NotContains(t, removed[0].(map[string]any), "rule")

	text := readText(t, w, FilteredCandidates)
	assert.Contains(t, text, "Min occurrences threshold: 2")
	assert.Contains(t, text, "  location: 1")
}

func TestClusteredKeywords(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	doc := readJSON(t, w, ClusteredKeywords)
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, cluster.Algorithm, meta["algorithm"])
	assert.EqualValues(t, 2, meta["unclusterable_count"])
	assert.Equal(t, []any{"Alpha", "Zeta"}, doc["unclusterable"])

	clusters := doc["clusters"].([]any)
	require.Len(t, clusters, 2)
	assert.EqualValues(t, 1, clusters[0].(map[string]any)["term_count"])

	text := readText(t, w, ClusteredKeywords)
	assert.Contains(t, text, "Cluster 1: Programming Languages\n  Central term: Python\n  Terms (1):\n    - Python")
	assert.Contains(t, text, "UNCLUSTERABLE TERMS (no valid embeddings)\n"+subRule+"\n  - Alpha\n  - Zeta")
	assert.Contains(t, text, "Silhouette score: 0.5")
}

func TestReviewTemplate(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	doc := readJSON(t, w, ReviewTemplate)
	assert.Len(t, doc["categories"], len(ReviewCategories))
	terms := doc["terms"].([]any)
	require.Len(t, terms, 2)
	assert.Equal(t, "", terms[0].(map[string]any)["category"])

	text := readText(t, w, ReviewTemplate)
	assert.Contains(t, text, "Python (2, 2 sources) -> ")
}

func TestByCompanyKeepsOrder(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(w.Dir, ByCompany+".json"))
	require.NoError(t, err)
	body := string(data)

	acme := strings.Index(body, `"Acme"`)
	globex := strings.Index(body, `"Globex"`)
	initech := strings.Index(body, `"Initech"`)
	require.True(t, acme >= 0 && globex >= 0 && initech >= 0)
	assert.Less(t, acme, globex, "name breaks the tie")
	assert.Less(t, globex, initech, "Initech has the fewest terms")

	doc := readJSON(t, w, ByCompany)
	assert.Equal(t, []any{"Kubernetes", "Python"}, doc["Acme"].(map[string]any)["all_terms"])
	assert.NotContains(t, doc["Acme"].(map[string]any)["all_terms"], "Boston")
}

func TestSummaryStats(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	doc := readJSON(t, w, SummaryStats)
	assert.EqualValues(t, 3, doc["total_files_processed"])
	assert.EqualValues(t, 2, doc["total_unique_terms"])

	buckets := doc["terms_by_frequency_bucket"].(map[string]any)
	assert.EqualValues(t, 2, buckets["2-4"])
	assert.EqualValues(t, 0, buckets["1"])

	data, err := os.ReadFile(filepath.Join(w.Dir, SummaryStats+".json"))
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(data), `"50+"`), strings.Index(string(data), `"1"`))

	text := readText(t, w, SummaryStats)
	assert.Contains(t, text, "   1. Kubernetes (4 occurrences, 3 sources)")
	assert.Contains(t, text, "  Acme: 2 terms")
}

func TestOrderedObject(t *testing.T) {
	obj := newOrderedObject()
	obj.Set("b", 1)
	obj.Set("a", 2)
	obj.Set("b", 3)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":2}`, string(data))
}

func TestReadFilteredTermsAndWriteRefined(t *testing.T) {
	w := testWriter(t)
	_, err := w.WriteAll(testInput())
	require.NoError(t, err)

	terms, err := ReadFilteredTerms(filepath.Join(w.Dir, FilteredCandidates+".json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Kubernetes", "Python"}, terms)

	_, err = ReadFilteredTerms(filepath.Join(w.Dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, w.WriteRefined(refine.Report{
		Input:    5,
		Cleaned:  4,
		Keywords: []string{"Kubernetes", "Python"},
		Rejected: []string{"Synergy"},
		Reviewed: true,
	}))

	doc := readJSON(t, w, RefinedKeywords)
	assert.EqualValues(t, 2, doc["count"])
	assert.Equal(t, []any{"Kubernetes", "Python"}, doc["keywords"])
	assert.Equal(t, []any{"Synergy"}, doc["rejected"])

	text := readText(t, w, RefinedKeywords)
	assert.Contains(t, text, "Reviewed: true")
	assert.Contains(t, text, "REJECTED BY REVIEW\n"+subRule+"\n  - Synergy")
}
