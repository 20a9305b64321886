package filter

import (
	"testing"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
)

func record(set *candidate.Set, term string, sources ...string) {
	for _, s := range sources {
		set.Add(term, "test", s)
	}
}

func TestScenarios(t *testing.T) {
	f := New(nil, nil)
	companies := []string{"A", "B", "C"}

	tests := []struct {
		name       string
		term       string
		sources    []string
		wantKept   bool
		wantReason Reason
	}{
		{"location removed", "San Francisco", []string{"A", "B"}, false, ReasonLocation},
		{"kubernetes kept", "Kubernetes", []string{"A", "B", "C"}, true, ""},
		{"protected single source kept", "Rust", []string{"A"}, true, ""},
		{"common word removed", "Experience", []string{"A", "B", "C"}, false, ReasonCommonWord},
		{"single source removed", "Quantum", []string{"A"}, false, ReasonLowFrequency},
		{"tech pattern single source kept", "GraphQL", []string{"A"}, true, ""},
		{"not tech removed", "Quantum Widgets", []string{"A", "B"}, false, ReasonNotTechTerm},
		{"noise removed", "5+ years", []string{"A", "B"}, false, ReasonNoisePattern},
		{"linkedin removed", "LinkedIn Premium", []string{"A", "B"}, false, ReasonNoisePattern},
		{"slash acronym kept", "CI/CD", []string{"A", "B"}, true, ""},
		{"tech phrase kept", "machine learning", []string{"A", "B"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := candidate.NewSet()
			record(set, tt.term, tt.sources...)
			key := candidate.Key(tt.term)

			res := f.Apply(set, companies, DefaultMinSources)

			_, kept := res.Kept.Get(key)
			if kept != tt.wantKept {
				t.Fatalf("%q: expected kept=%v, got reason %q", tt.term, tt.wantKept, res.Reasons[key])
			}
			if !tt.wantKept && res.Reasons[key] != tt.wantReason {
				t.Errorf("%q: expected reason %s, got %s", tt.term, tt.wantReason, res.Reasons[key])
			}
		})
	}
}

func TestCompanyName(t *testing.T) {
	f := New(nil, nil)
	set := candidate.NewSet()
	record(set, "Robotics", "Acme Robotics", "Other Co")
	record(set, "acme robotics", "Acme Robotics", "Other Co")

	res := f.Apply(set, []string{"Acme Robotics", "Other Co"}, 2)
	for _, key := range []string{"robotics", "acme robotics"} {
		if res.Reasons[key] != ReasonCompanyName {
			t.Errorf("%q: expected company_name, got %q", key, res.Reasons[key])
		}
	}
}

func TestPartitionComplete(t *testing.T) {
	f := New(nil, nil)
	set := candidate.NewSet()
	terms := []string{
		"PostgreSQL", "REST", "Kubernetes", "Docker", "CI/CD", "San Francisco",
		"Experience", "2024", "Acme", "team player", "Node.js", "C++", "R277297",
		"Quantum Widgets", "LinkedIn", "Go", "a very long fragment of some sentence",
	}
	for _, term := range terms {
		record(set, term, "Acme", "Globex")
	}
	record(set, "Solo", "Acme")

	res := f.Apply(set, []string{"Acme", "Globex"}, 2)

	if res.Kept.Len()+res.Removed.Len() != set.Len() {
		t.Fatalf("Expected %d total, got %d kept + %d removed", set.Len(), res.Kept.Len(), res.Removed.Len())
	}
	for _, key := range set.Keys() {
		_, inKept := res.Kept.Get(key)
		_, inRemoved := res.Removed.Get(key)
		if inKept == inRemoved {
			t.Errorf("%q must be in exactly one partition (kept=%v removed=%v)", key, inKept, inRemoved)
		}
		if _, hasReason := res.Reasons[key]; hasReason != inRemoved {
			t.Errorf("%q: reason present=%v but removed=%v", key, hasReason, inRemoved)
		}
	}

	total := 0
	for _, n := range res.ReasonCounts() {
		total += n
	}
	if total != res.Removed.Len() {
		t.Errorf("Reason counts should sum to %d, got %d", res.Removed.Len(), total)
	}
}

func TestProtectedNeverCommonOrLowFrequency(t *testing.T) {
	f := New(nil, nil)
	protected := []string{"go", "r", "c", "it", "ai", "rest", "shell", "less", "scheme", "c++", ".net", "rust", "sql", "ci/cd"}

	for _, term := range protected {
		set := candidate.NewSet()
		record(set, term, "OnlyOne")
		res := f.Apply(set, nil, 5)
		reason := res.Reasons[candidate.Key(term)]
		if reason == ReasonCommonWord || reason == ReasonLowFrequency {
			t.Errorf("protected %q removed as %s", term, reason)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	f := New(nil, nil)
	set := candidate.NewSet()
	record(set, "postgresql", "A", "B")
	set.Add("PostgreSQL", "camelcase", "A")

	res := f.Apply(set, nil, 2)

	orig, _ := set.Get("postgresql")
	if orig.Term != "PostgreSQL" {
		t.Errorf("Input display form changed to %q", orig.Term)
	}
	kept, ok := res.Kept.Get("postgresql")
	if !ok {
		t.Fatalf("Expected postgresql kept, got reason %q", res.Reasons["postgresql"])
	}
	kept.Count = 99
	if orig.Count == 99 {
		t.Error("Result records must be copies")
	}
}

func TestCanonicalForm(t *testing.T) {
	tests := []struct {
		forms []string
		want  string
	}{
		{[]string{"POSTGRESQL", "PostgreSQL", "postgresql"}, "PostgreSQL"},
		{[]string{"Docker", "docker"}, "Docker"},
		{[]string{"KUBERNETES", "Kubernetes"}, "KUBERNETES"},
		{[]string{"Alpha", "Beta"}, "Alpha"},
		{nil, "fallback"},
	}
	for _, tt := range tests {
		if got := CanonicalForm(tt.forms, "fallback"); got != tt.want {
			t.Errorf("CanonicalForm(%v): expected %q, got %q", tt.forms, tt.want, got)
		}
	}
}

func TestHasTechPattern(t *testing.T) {
	tests := []struct {
		term string
		want bool
	}{
		{"GraphQL", true},
		{"iOS", false}, // too short for the camel rule
		{"gRPC", true},
		{"C++", true},
		{"F#", true},
		{"#hashtag", false},
		{"Node.js", true},
		{"example.com", false},
		{"Python3", true},
		{"HTML5", true},
		{"CI_CD", true},
		{"Kubernetes", false},
		{"REST", false},
	}
	for _, tt := range tests {
		if got := HasTechPattern(tt.term); got != tt.want {
			t.Errorf("HasTechPattern(%q): expected %v, got %v", tt.term, tt.want, got)
		}
	}
}

func TestNoiseBattery(t *testing.T) {
	f := New(nil, nil)
	noisy := []string{
		"LinkedIn", "10+ years", "65M+ customers", "now hiring", "YC S25",
		"R277297", "L4", "Q1", "10:23 PM", "150K-200K", "$120,000", "2024 Questions",
		"· bullet", "(unclosed", "---", "one two three four five", "example.com",
		"ff82", "Easy Apply", "SoHo", "NetJets Columbus", "IL BlackRock",
		"(Arabic) বাংলা", "TalentHub", "Acme®", "About Acme", "Acme's mission",
		"Acme customers", "TCP_01",
	}
	for _, term := range noisy {
		if !f.IsNoise(term) {
			t.Errorf("Expected %q to be noise", term)
		}
	}

	clean := []string{"PostgreSQL", "Kubernetes", "C++", ".NET", "Node.js", "EC2", "S3", "CI/CD", "machine learning", "Go"}
	for _, term := range clean {
		if f.IsNoise(term) {
			t.Errorf("Did not expect %q to be noise (rule %s)", term, f.noise.Match(term))
		}
	}
}

func TestIsNumericOrDate(t *testing.T) {
	for _, term := range []string{"2024", "1,000", "12/31/2024", "2019-2024", "50K"} {
		if !IsNumericOrDate(term) {
			t.Errorf("Expected %q numeric or date", term)
		}
	}
	if IsNumericOrDate("K8s") {
		t.Error("K8s is not numeric")
	}
}

func TestIsLocationMultiWord(t *testing.T) {
	f := New(nil, nil)
	if !f.IsLocation("greater boston area") {
		t.Error("Expected all-location phrase to be a location")
	}
	if f.IsLocation("boston dynamics") {
		t.Error("Mixed phrase should not be a location")
	}
}

func TestExplain(t *testing.T) {
	f := New(nil, nil)
	if got := f.Explain("San Francisco", nil, 1); got != ReasonLocation {
		t.Errorf("Expected location, got %q", got)
	}
	if got := f.Explain("Rust", nil, 2); got != "" {
		t.Errorf("Expected Rust kept, got %q", got)
	}
}
