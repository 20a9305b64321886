package embed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Vectors is an in-memory static word-vector table. Lookups are
// case-insensitive. A multi-word term uses its own vector when the table has
// one, else the mean of its known word vectors, else no embedding.
//
// Vectors is read-only after loading and safe for concurrent use.
type Vectors struct {
	dim   int
	table map[string][]float32
}

// NewVectors builds a table from a map. All vectors must share a dimension.
func NewVectors(table map[string][]float32) (*Vectors, error) {
	v := &Vectors{table: make(map[string][]float32, len(table))}
	for word, vec := range table {
		if err := v.put(word, vec); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadVectorsFile reads a word2vec/GloVe text file.
func LoadVectorsFile(path string) (*Vectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVectors(f)
}

// LoadVectors reads "word v1 v2 ... vN" lines. A word2vec header line
// ("count dim") is skipped. Blank lines are ignored.
func LoadVectors(r io.Reader) (*Vectors, error) {
	v := &Vectors{table: make(map[string][]float32)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNum == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: missing vector components", lineNum)
		}
		vec := make([]float32, len(fields)-1)
		for i, s := range fields[1:] {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			vec[i] = float32(f)
		}
		if err := v.put(fields[0], vec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vectors) put(word string, vec []float32) error {
	if v.dim == 0 {
		v.dim = len(vec)
	} else if len(vec) != v.dim {
		return fmt.Errorf("vector for %q has dimension %d, expected %d", word, len(vec), v.dim)
	}
	v.table[strings.ToLower(word)] = vec
	return nil
}

// Dim returns the vector dimension.
func (v *Vectors) Dim() int { return v.dim }

// Len returns the number of entries.
func (v *Vectors) Len() int { return len(v.table) }

// Lookup returns the vector for term, or a zero vector of length Dim.
func (v *Vectors) Lookup(term string) []float32 {
	key := strings.ToLower(strings.TrimSpace(term))
	if vec, ok := v.table[key]; ok {
		return append([]float32(nil), vec...)
	}

	mean := make([]float32, v.dim)
	n := 0
	for _, word := range strings.Fields(key) {
		vec, ok := v.table[word]
		if !ok {
			continue
		}
		for i, x := range vec {
			mean[i] += x
		}
		n++
	}
	if n > 0 {
		for i := range mean {
			mean[i] /= float32(n)
		}
	}
	return mean
}

// EmbedTexts implements Embedder. It never fails.
func (v *Vectors) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = v.Lookup(t)
	}
	return out, nil
}
