// Package report writes pipeline results as paired JSON and plain-text
// files into an output directory.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/techterms/pkg/techterms/candidate"
	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/filter"
)

// Report file stems.
const (
	RawCandidates      = "1_raw_candidates"
	FilteredCandidates = "2_filtered_candidates"
	ClusteredKeywords  = "3_clustered_keywords"
	ReviewTemplate     = "4_manual_review_template"
	ByCompany          = "5_by_company"
	SummaryStats       = "6_summary_stats"
)

const (
	rule    = "=================================================="
	subRule = "--------------------------------------------------"
)

// Input is everything a full report needs.
type Input struct {
	Raw        *candidate.Set
	Filter     filter.Result
	Clustering *cluster.Result // nil skips the clustering report
	Documents  int
	MinSources int
}

// Writer writes reports into Dir.
type Writer struct {
	Dir    string
	Now    func() time.Time
	Logger *slog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{
		Dir:    dir,
		Now:    time.Now,
		Logger: slog.Default().With("component", "report"),
	}
}

// WriteAll writes every report and returns the stems written, in order.
func (w *Writer) WriteAll(in Input) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	steps := []struct {
		stem string
		run  func() error
	}{
		{RawCandidates, func() error { return w.WriteRaw(in.Raw, in.Documents) }},
		{FilteredCandidates, func() error { return w.WriteFiltered(in.Filter, in.MinSources) }},
		{ClusteredKeywords, func() error {
			if in.Clustering == nil {
				return errSkipped
			}
			return w.WriteClusters(*in.Clustering)
		}},
		{ReviewTemplate, func() error { return w.WriteReviewTemplate(in.Filter.Kept) }},
		{ByCompany, func() error { return w.WriteByCompany(in.Filter.Kept) }},
		{SummaryStats, func() error { return w.WriteSummary(in.Filter.Kept, in.Documents) }},
	}

	var written []string
	for _, step := range steps {
		err := step.run()
		if err == errSkipped {
			w.logger().Info("skipped report", "report", step.stem)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("write %s: %w", step.stem, err)
		}
		w.logger().Debug("wrote report", "report", step.stem)
		written = append(written, step.stem)
	}
	return written, nil
}

var errSkipped = fmt.Errorf("report skipped")

func (w *Writer) date() string {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().Format("2006-01-02")
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// write stores data as <stem>.json and lines as <stem>.txt.
func (w *Writer) write(stem string, data any, lines []string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.Dir, stem+".json"), buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.Dir, stem+".txt"), []byte(strings.Join(lines, "\n")), 0o644)
}

// orderedObject marshals as a JSON object that keeps insertion order.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func newOrderedObject() *orderedObject {
	return &orderedObject{values: make(map[string]any)}
}

func (o *orderedObject) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
