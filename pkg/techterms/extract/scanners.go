package extract

import (
	"regexp"
	"strings"
)

var (
	// PostgreSQL, JavaScript, GraphQL
	pascalPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:[A-Z][a-z]*)+\b`)

	// iOS, gRPC, macOS
	lowerCamelPattern = regexp.MustCompile(`\b[a-z]+[A-Z][a-zA-Z]*\b`)

	allCapsPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]{1,}\b`)

	cppPattern       = regexp.MustCompile(`\bC\+\+`)
	csharpPattern    = regexp.MustCompile(`\bC#`)
	dotnetPattern    = regexp.MustCompile(`(?i)\.NET(?:\s*(?:Core|Framework|Standard))?`)
	jsPattern        = regexp.MustCompile(`(?i)\b[A-Za-z]+\.js\b`)
	numberedPattern  = regexp.MustCompile(`\b[A-Za-z]+[0-9]+[A-Za-z]*\b`)
	leadDigitPattern = regexp.MustCompile(`\b[0-9]+[A-Za-z]+\b`)
	hyphenPattern    = regexp.MustCompile(`\b[A-Za-z]+-[A-Za-z]+(?:-[A-Za-z]+)?\b`)
	slashPattern     = regexp.MustCompile(`\b[A-Z][A-Za-z]+/[A-Z][A-Za-z]+\b`)

	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

	splitPattern = regexp.MustCompile(`[,;]|\band\b|\bor\b`)
)

// specialPatterns recognize punctuation-bearing idioms.
var specialPatterns = []*regexp.Regexp{
	cppPattern,
	csharpPattern,
	dotnetPattern,
	jsPattern,
	numberedPattern,
	leadDigitPattern,
	hyphenPattern,
	slashPattern,
}

// ScanCamelCase finds PascalCase compounds and lower-prefixed mixed case names.
func ScanCamelCase(text string) []string {
	out := pascalPattern.FindAllString(text, -1)
	out = append(out, lowerCamelPattern.FindAllString(text, -1)...)
	return distinct(out)
}

// ScanSpecialPatterns finds C++, C#, .NET variants, X.js names, letter/digit
// names, hyphenated compounds and slash acronyms.
func ScanSpecialPatterns(text string) []string {
	var out []string
	for _, re := range specialPatterns {
		out = append(out, re.FindAllString(text, -1)...)
	}
	return distinct(out)
}

// contextScanner finds list items following introductory phrases such as
// "experience with" and "knowledge of".
type contextScanner struct {
	pattern *regexp.Regexp
}

func newContextScanner(phrases []string) *contextScanner {
	if len(phrases) == 0 {
		return &contextScanner{}
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return &contextScanner{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\s+`),
	}
}

func (c *contextScanner) scan(text string) []string {
	if c.pattern == nil {
		return nil
	}
	var out []string
	consumed := 0
	for _, loc := range c.pattern.FindAllStringIndex(text, -1) {
		if loc[0] < consumed {
			continue
		}
		start := loc[1]
		end := clauseEnd(text, start)
		consumed = end
		for _, part := range splitPattern.Split(text[start:end], -1) {
			part = strings.TrimSpace(part)
			n := len(strings.Fields(part))
			if n >= 1 && n <= 4 && len(part) >= MinTermLength {
				out = append(out, part)
			}
		}
	}
	return distinct(out)
}

// clauseEnd returns the index of the first clause boundary at or after start.
// A period only ends a clause when followed by whitespace or end of text, so
// "Node.js" and ".NET" stay intact.
func clauseEnd(text string, start int) int {
	for i := start; i < len(text); i++ {
		switch text[i] {
		case ':', '!', '?', '(', ')', '\n':
			return i
		case '.':
			if i+1 == len(text) || isSpace(text[i+1]) {
				return i
			}
		}
	}
	return len(text)
}

func (e *Extractor) scanSingleWords(text string) []string {
	var out []string
	for _, loc := range capitalizedPattern.FindAllStringIndex(text, -1) {
		if afterLowercaseOrPunct(text, loc[0]) {
			out = append(out, text[loc[0]:loc[1]])
		}
	}
	for _, name := range e.lex.ShortNames() {
		if matchShortName(text, name) {
			out = append(out, name)
		}
	}
	return distinct(out)
}

// afterLowercaseOrPunct reports whether the word at i is preceded by a single
// whitespace character, itself preceded by a lowercase letter or punctuation.
// Words at sentence start or after capitalized words do not qualify.
func afterLowercaseOrPunct(text string, i int) bool {
	if i < 2 || !isSpace(text[i-1]) {
		return false
	}
	prev := text[i-2]
	return (prev >= 'a' && prev <= 'z') || strings.IndexByte(",.;:!?", prev) >= 0
}

// matchShortName reports whether name occurs as a standalone word.
// "C++", "C#", "R&D" and "Go-to-market" are not occurrences.
func matchShortName(text, name string) bool {
	for from := 0; from < len(text); {
		idx := strings.Index(text[from:], name)
		if idx < 0 {
			return false
		}
		i := from + idx
		j := i + len(name)
		from = j
		if i > 0 && isWordByte(text[i-1]) {
			continue
		}
		if j < len(text) && (isWordByte(text[j]) || strings.IndexByte("+#&-'", text[j]) >= 0) {
			continue
		}
		return true
	}
	return false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
