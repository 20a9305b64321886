// Package textprep cleans raw job-description text before extraction.
//
// Case and punctuation are preserved: "C++", ".NET" and "Node.js" only survive
// extraction if their characters reach the scanners untouched.
package textprep

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	salaryPattern = regexp.MustCompile(`\$[\d,]+(?:\s*[-—–]\s*\$?[\d,]+)?`)
	usdPattern    = regexp.MustCompile(`USD\s*\$?[\d,]+(?:\s*[-—–]\s*(?:USD\s*)?\$?[\d,]+)?`)
)

// Step is a single text transformation.
type Step func(string) string

// Steps is the preprocessing order. Salary stripping runs before whitespace
// collapse so removed figures never leave doubled separators behind.
var Steps = []Step{
	NormalizeUnicode,
	RemoveURLs,
	RemoveEmails,
	RemoveSalaries,
	NormalizeWhitespace,
}

// Preprocess applies every step in order. It accepts any string.
func Preprocess(text string) string {
	for _, step := range Steps {
		text = step(text)
	}
	return text
}

// NormalizeUnicode applies NFKC compatibility normalization (ligatures,
// full-width forms and non-breaking spaces fold to plain characters).
func NormalizeUnicode(text string) string {
	return norm.NFKC.String(text)
}

// RemoveURLs replaces http(s) URLs with a space.
func RemoveURLs(text string) string {
	return urlPattern.ReplaceAllString(text, " ")
}

// RemoveEmails replaces email addresses with a space.
func RemoveEmails(text string) string {
	return emailPattern.ReplaceAllString(text, " ")
}

// RemoveSalaries strips "$84,200", "$130,000—$300,000" and "USD 150,000" style figures.
func RemoveSalaries(text string) string {
	text = salaryPattern.ReplaceAllString(text, " ")
	return usdPattern.ReplaceAllString(text, " ")
}

// NormalizeWhitespace collapses whitespace runs to single spaces and trims.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HTMLToText extracts visible text from an HTML document. Script and style
// contents are dropped; text nodes are joined with spaces so block boundaries
// do not glue words together.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				if buf.Len() > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return buf.String(), nil
}
