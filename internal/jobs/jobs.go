// Package jobs reads job-description corpora from disk.
package jobs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/textprep"
)

// Description is one job posting and the company it belongs to.
type Description struct {
	Company  string `json:"company"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

var companyPattern = regexp.MustCompile(`(?i)^(.+?)_job_description$`)

// Extensions lists the file types ReadDir picks up.
var Extensions = []string{".txt", ".html"}

// CompanyFromFilename derives a company from "{Company}_job_description.txt".
// Underscores become spaces; names that do not follow the pattern fall back
// to the file stem.
func CompanyFromFilename(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if m := companyPattern.FindStringSubmatch(stem); m != nil {
		return strings.ReplaceAll(m[1], "_", " ")
	}
	return stem
}

// ReadDir reads every supported file in dir, sorted by name. Files that
// cannot be read are logged and skipped.
func ReadDir(dir string) ([]Description, error) {
	logger := slog.Default().With("component", "jobs")

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory: %w", dir, internalerr.ErrInvalidInput)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no job descriptions in %s: %w", dir, internalerr.ErrNoDocuments)
	}
	sort.Strings(names)

	docs := make([]Description, 0, len(names))
	for _, name := range names {
		text, err := readFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable file", "file", name, "error", err)
			continue
		}
		docs = append(docs, Description{
			Company:  CompanyFromFilename(name),
			Filename: name,
			Text:     text,
		})
	}
	logger.Debug("read job descriptions", "dir", dir, "files", len(docs))
	return docs, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := Decode(data)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".html") {
		return textprep.HTMLToText(strings.NewReader(text))
	}
	return text, nil
}

// Decode returns data as UTF-8, reading it as Latin-1 when it is not valid UTF-8.
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

// LoadJSONL loads descriptions from a JSONL file, one object per line.
// Malformed lines are logged and skipped.
func LoadJSONL(path string) ([]Description, error) {
	logger := slog.Default().With("component", "jobs")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var docs []Description
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var doc Description
		if err := json.Unmarshal(raw, &doc); err != nil {
			logger.Warn("skipping malformed line", "file", path, "line", line, "error", err)
			continue
		}
		if doc.Company == "" && doc.Filename != "" {
			doc.Company = CompanyFromFilename(doc.Filename)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid descriptions in %s: %w", path, internalerr.ErrNoDocuments)
	}
	return docs, nil
}
