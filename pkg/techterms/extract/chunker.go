package extract

import (
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// Chunker splits text into noun phrases.
type Chunker interface {
	Chunks(text string) ([]string, error)
}

// TaggedToken is a token with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

// ProseChunker tags text with the prose averaged-perceptron tagger and
// groups the tags into noun chunks. A nil Model uses the shared model.
type ProseChunker struct {
	Model *prose.Model
}

// sharedModel decodes the tagger weights on first use. The model is only
// read while tagging, so one instance serves every document.
var sharedModel = sync.OnceValue(func() *prose.Model {
	return prose.ModelFromData("techterms")
})

// NewProseChunker returns a chunker over the shared model.
func NewProseChunker() *ProseChunker {
	return &ProseChunker{Model: sharedModel()}
}

// Chunks implements Chunker.
func (c *ProseChunker) Chunks(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	model := c.Model
	if model == nil {
		model = sharedModel()
	}
	doc, err := prose.NewDocument(text,
		prose.UsingModel(model),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	toks := doc.Tokens()
	tagged := make([]TaggedToken, len(toks))
	for i, tok := range toks {
		tagged[i] = TaggedToken{Text: tok.Text, Tag: tok.Tag}
	}
	return ChunkTagged(tagged), nil
}

// ChunkTagged groups tagged tokens into noun chunks: an optional determiner
// or possessive followed by modifiers, ending at the last noun of the run.
// Determiners are kept in the chunk text so callers can reject them.
func ChunkTagged(tokens []TaggedToken) []string {
	var chunks []string
	var run []TaggedToken

	flush := func() {
		last := -1
		for i, tok := range run {
			if isNounTag(tok.Tag) {
				last = i
			}
		}
		if last >= 0 {
			words := make([]string, 0, last+1)
			for _, tok := range run[:last+1] {
				words = append(words, tok.Text)
			}
			chunks = append(chunks, strings.Join(words, " "))
		}
		run = run[:0]
	}

	for _, tok := range tokens {
		switch {
		case isDeterminerTag(tok.Tag):
			flush()
			run = append(run, tok)
		case isNounTag(tok.Tag):
			run = append(run, tok)
		case isModifierTag(tok.Tag):
			// a modifier after a noun opens the next phrase
			if len(run) > 0 && isNounTag(run[len(run)-1].Tag) {
				flush()
			}
			run = append(run, tok)
		default:
			flush()
		}
	}
	flush()
	return chunks
}

func isNounTag(tag string) bool {
	return strings.HasPrefix(tag, "NN")
}

func isModifierTag(tag string) bool {
	return strings.HasPrefix(tag, "JJ") || tag == "VBG" || tag == "CD"
}

func isDeterminerTag(tag string) bool {
	return tag == "DT" || tag == "PDT" || tag == "PRP$"
}
