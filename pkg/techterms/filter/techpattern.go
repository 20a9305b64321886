package filter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	camelTransition  = regexp.MustCompile(`[a-z][A-Z]`)
	extensionSuffix  = regexp.MustCompile(`\.[a-zA-Z]{1,4}$`)
	webTLD           = regexp.MustCompile(`(?i)\.com|\.org|\.net|\.io`)
	versionSuffix    = regexp.MustCompile(`[a-zA-Z]+\d+$`)
	underscoreAllCap = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,15}$`)
)

// HasTechPattern reports whether term is shaped like a technical name:
//   - an internal lower-to-upper transition (GraphQL, iOS) in a term longer than 3
//   - a '+' or '#' that is not the leading character (C++, F#)
//   - an extension-like suffix that is not a web TLD (Node.js, Vue.js)
//   - trailing digits on a short name (Python3, ES6, HTML5)
//   - an underscore-joined all-caps token (CI_CD)
//
// Casing is significant.
func HasTechPattern(term string) bool {
	if utf8.RuneCountInString(term) > 3 && camelTransition.MatchString(term) {
		return true
	}
	if strings.ContainsAny(term, "+#") && !strings.HasPrefix(term, "#") {
		return true
	}
	if extensionSuffix.MatchString(term) && !webTLD.MatchString(term) {
		return true
	}
	if versionSuffix.MatchString(term) && utf8.RuneCountInString(term) <= 10 {
		return true
	}
	if strings.Contains(term, "_") && underscoreAllCap.MatchString(term) {
		return true
	}
	return false
}

// CanonicalForm picks the display spelling among forms: the first (in sorted
// order) with a tech pattern, else the one with the most uppercase letters,
// ties going to the earlier form. fallback is returned when forms is empty.
func CanonicalForm(forms []string, fallback string) string {
	if len(forms) == 0 {
		return fallback
	}
	for _, f := range forms {
		if HasTechPattern(f) {
			return f
		}
	}
	best, bestUpper := forms[0], countUpper(forms[0])
	for _, f := range forms[1:] {
		if n := countUpper(f); n > bestUpper {
			best, bestUpper = f, n
		}
	}
	return best
}

func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			n++
		}
	}
	return n
}
