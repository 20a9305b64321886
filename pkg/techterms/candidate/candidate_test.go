package candidate

import "testing"

func docSet(source string, hits ...[2]string) *Set {
	s := NewSet()
	for _, h := range hits {
		s.Add(h[0], h[1], source)
	}
	return s
}

func TestAddAccumulates(t *testing.T) {
	s := NewSet()
	s.Add("PostgreSQL", "camelcase", "Acme")
	s.Add("postgresql", "noun_phrase", "Acme")
	s.Add("x", "allcaps", "Acme") // too short

	if s.Len() != 1 {
		t.Fatalf("Expected 1 record, got %d", s.Len())
	}
	rec, ok := s.Get("postgresql")
	if !ok {
		t.Fatal("Expected record for postgresql")
	}
	if rec.Count != 2 {
		t.Errorf("Expected count 2, got %d", rec.Count)
	}
	if rec.NumSources() != 1 {
		t.Errorf("Expected 1 source, got %d", rec.NumSources())
	}
	if len(rec.Signals) != 2 || len(rec.OriginalForms) != 2 {
		t.Errorf("Expected 2 signals and 2 forms, got %v / %v", rec.SignalList(), rec.Forms())
	}
	if rec.Term != "PostgreSQL" {
		t.Errorf("Expected display PostgreSQL, got %s", rec.Term)
	}
}

func TestMergeSameDocumentTwice(t *testing.T) {
	doc := docSet("Acme",
		[2]string{"Kubernetes", "single_word"},
		[2]string{"Kubernetes", "context"},
		[2]string{"REST", "allcaps"},
	)

	merged := MergeAll(doc, doc)

	rec, _ := merged.Get("kubernetes")
	if rec.Count != 4 {
		t.Errorf("Expected doubled count 4, got %d", rec.Count)
	}
	if len(rec.Sources) != 1 || len(rec.Signals) != 2 || len(rec.OriginalForms) != 1 {
		t.Errorf("Set fields should be unchanged, got sources=%v signals=%v forms=%v",
			rec.SourceList(), rec.SignalList(), rec.Forms())
	}

	orig, _ := doc.Get("kubernetes")
	if orig.Count != 2 {
		t.Errorf("Merge must not mutate its input, got count %d", orig.Count)
	}
}

func TestMergeCommutativeAndAssociative(t *testing.T) {
	a := docSet("A", [2]string{"Docker", "single_word"}, [2]string{"CI/CD", "special_pattern"})
	b := docSet("B", [2]string{"docker", "noun_phrase"}, [2]string{"Go", "single_word"})
	c := docSet("C", [2]string{"DOCKER", "allcaps"}, [2]string{"Go", "single_word"})

	orders := []*Set{
		MergeAll(a, b, c),
		MergeAll(c, b, a),
		MergeAll(b, a, c),
		MergeAll(MergeAll(a, b), c),
		MergeAll(a, MergeAll(b, c)),
		MergeAll(MergeAll(c, a), b),
	}

	for i := 1; i < len(orders); i++ {
		if !Equal(orders[0], orders[i]) {
			t.Errorf("Merge order %d produced a different result", i)
		}
	}

	rec, _ := orders[0].Get("docker")
	if rec.Term != "DOCKER" {
		t.Errorf("Expected lexicographically smallest display form DOCKER, got %s", rec.Term)
	}
	if rec.NumSources() != 3 || rec.Count != 3 {
		t.Errorf("Expected 3 sources and count 3, got %d/%d", rec.NumSources(), rec.Count)
	}
}

func TestSorted(t *testing.T) {
	s := NewSet()
	s.Add("Go", "single_word", "A")
	s.Add("Rust", "single_word", "A")
	s.Add("Rust", "single_word", "B")
	s.Add("Java", "single_word", "A")
	s.Add("Java", "context", "A")

	entries := s.Sorted()
	got := []string{entries[0].Key, entries[1].Key, entries[2].Key}
	want := []string{"rust", "java", "go"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := docSet("A", [2]string{"Python", "single_word"})
	c := s.Clone()
	c.Add("Python", "context", "B")

	rec, _ := s.Get("python")
	if rec.Count != 1 || rec.NumSources() != 1 {
		t.Error("Clone should not share records with the original")
	}
}
