package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/techterms/pkg/techterms/internalerr"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCompanyFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme_Corp_job_description.txt", "Acme Corp"},
		{"Globex_JOB_DESCRIPTION.txt", "Globex"},
		{"Initech_job_description.html", "Initech"},
		{"random_posting.txt", "random_posting"},
		{"_job_description.txt", "_job_description"},
	}
	for _, tt := range tests {
		if got := CompanyFromFilename(tt.name); got != tt.want {
			t.Errorf("CompanyFromFilename(%q) = %q, expected %q", tt.name, got, tt.want)
		}
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Zeta_job_description.txt", []byte("We use Go and Kubernetes."))
	writeFile(t, dir, "Acme_Corp_job_description.txt", []byte("Python and PostgreSQL."))
	writeFile(t, dir, "Beta_job_description.html", []byte("<html><body><h1>Role</h1><p>Rust</p><script>var x;</script></body></html>"))
	writeFile(t, dir, "notes.md", []byte("ignored"))
	if err := os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	docs, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}

	want := []Description{
		{Company: "Acme Corp", Filename: "Acme_Corp_job_description.txt", Text: "Python and PostgreSQL."},
		{Company: "Beta", Filename: "Beta_job_description.html", Text: "Role Rust"},
		{Company: "Zeta", Filename: "Zeta_job_description.txt", Text: "We use Go and Kubernetes."},
	}
	for i, w := range want {
		if docs[i] != w {
			t.Errorf("doc %d: expected %+v, got %+v", i, w, docs[i])
		}
	}
}

func TestReadDirLatin1Fallback(t *testing.T) {
	dir := t.TempDir()
	// "Café" in ISO-8859-1 is not valid UTF-8.
	writeFile(t, dir, "Cafe_job_description.txt", []byte{'C', 'a', 'f', 0xE9})

	docs, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if docs[0].Text != "Café" {
		t.Errorf("Expected latin-1 decode to give Café, got %q", docs[0].Text)
	}
}

func TestReadDirErrors(t *testing.T) {
	if _, err := ReadDir(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDir(file); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a file path, got %v", err)
	}

	empty := t.TempDir()
	if _, err := ReadDir(empty); !errors.Is(err, internalerr.ErrNoDocuments) {
		t.Errorf("Expected ErrNoDocuments for an empty dir, got %v", err)
	}
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	data := `{"company":"Acme","filename":"a.txt","text":"Go and Rust"}
not json

{"filename":"Globex_job_description.txt","text":"Kafka"}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadJSONL(path)
	if err != nil {
		t.Fatalf("LoadJSONL: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].Company != "Acme" || docs[0].Text != "Go and Rust" {
		t.Errorf("Unexpected first document %+v", docs[0])
	}
	if docs[1].Company != "Globex" {
		t.Errorf("Expected company derived from filename, got %q", docs[1].Company)
	}
}

func TestLoadJSONLErrors(t *testing.T) {
	if _, err := LoadJSONL(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJSONL(path); !errors.Is(err, internalerr.ErrNoDocuments) {
		t.Errorf("Expected ErrNoDocuments, got %v", err)
	}
}
