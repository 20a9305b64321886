package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/techterms/pkg/techterms/lexicon"
)

// Patterns for scraping artifacts found in job-board exports.
var (
	plusQuantity    = regexp.MustCompile(`\+\s*\d*\s*(years?|employees?|benefits?|more|stock|bonus|developers?|engineers?|people|partners?)`)
	statistic       = regexp.MustCompile(`\d+[kmb]?\+?\s*(companies|customers|users|countries|firms|exchanges|outlets|subjects|lines|languages|days|weeks|months|insurers|minds|providers|litigations|events)`)
	camelRun        = regexp.MustCompile(`[A-Z][a-z]+(?:[A-Z][a-z]+)+`)
	titleTrailer    = regexp.MustCompile(`(?:developer|engineer)\s+[a-z]+\s+[a-z]+`)
	ycBatch         = regexp.MustCompile(`(?i)^YC\s+[SFWX]\d{2}$`)
	jobReference    = regexp.MustCompile(`^[A-Z]{1,3}\d{3,}$`)
	levelCode       = regexp.MustCompile(`^[A-Z]{1,2}\d{1,2}$`)
	batchCode       = regexp.MustCompile(`^[SFWQH]\d{1,2}$`)
	nJoined         = regexp.MustCompile(`[a-z]n[A-Z]|nn[A-Z]|n[A-Z][a-z]+$`)
	gluedWord       = regexp.MustCompile(`^([a-z]+)[A-Z][a-z]+`)
	unicodeEscape   = regexp.MustCompile(`u003[e>]`)
	timestamp       = regexp.MustCompile(`^\d{1,2}:\d{2}\s*(?:AM|PM|am|pm)?$`)
	kSalary         = regexp.MustCompile(`(?i)\d+K(?:/yr|/hr)?|\$?\d+K\s*-\s*\$?\d+K|K/yr\s*-\s*K`)
	yrBonus         = regexp.MustCompile(`yr\s*\+\s*(stock|bonus)`)
	priceRange      = regexp.MustCompile(`\.00\s*-\s*\.00`)
	employeeRange   = regexp.MustCompile(`(?i)\d+\s*-\s*\d+\s*employees|^\d+-\d+\s*employees?$`)
	numericWithUnit = regexp.MustCompile(`^[\d,.\-\s]+(?:K|M|B|k|m|b|hr|yr|%|GB|MB|TB)?$`)
	slashDate       = regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}$`)
	yearRange       = regexp.MustCompile(`^\d{4}[-–]\d{4}$`)
	yearWord        = regexp.MustCompile(`^\d{4}\s+\w+`)
	symbolNumber    = regexp.MustCompile(`^[#\-()"'·]+\s*\d`)
	openParen       = regexp.MustCompile(`^\([^)]*$`)
	closeParen      = regexp.MustCompile(`^[^(]*\)$`)
	punctuationOnly = regexp.MustCompile(`^[\s\-.,;:!?()\[\]{}"'/\\]+$`)
	currency        = regexp.MustCompile(`[$€£¥]\s*[\d,]+`)
	urlFragment     = regexp.MustCompile(`(?i)\w\.(?:com|org|io|ai|co)\b|\w\.net\b|www\.|https?:`)
	arr             = regexp.MustCompile(`\d+[MBK]?\+?\s*ARR`)
	hexString       = regexp.MustCompile(`^[a-f0-9]{4,}$`)
	lettersOnly8    = regexp.MustCompile(`^[A-Za-z]{8,}$`)
	stateCompany    = regexp.MustCompile(`^[A-Z]{2}\s+[A-Z][a-z]+`)
	localeLabel     = regexp.MustCompile(`^\([A-Za-z]+\)\s+`)
	parenNonASCII   = regexp.MustCompile(`\)\s+[^\x00-\x7F]`)
	halfLocaleLabel = regexp.MustCompile(`^[A-Za-z]+\)\s+`)
	rateRange       = regexp.MustCompile(`/yr\s*-\s*/yr|/hr\s*-\s*/hr|\d+\.\d+K`)
	camelPrefix     = regexp.MustCompile(`^[A-Z][a-z]+[A-Z]`)
	trademark       = regexp.MustCompile(`[®™]`)
	aboutPrefix     = regexp.MustCompile(`^(About|Why|Join|Us)\s+[A-Z]`)
	possessiveTopic = regexp.MustCompile(`'s\s+(mission|values|purpose|focus|efforts|strategy|cloud|products|customers|earliest)`)
	nameAudience    = regexp.MustCompile(`[A-Z][a-z]+\s+(customers|employees|reserves|instances|products|applications|teams)`)
	numberedID      = regexp.MustCompile(`^[A-Za-z]{2,}_\d{2}$`)
	randomCaseID    = regexp.MustCompile(`^[A-Z][a-z][A-Z]{2,}[a-z]{2,}[A-Z][a-z]+$`)
)

// noiseRule is one named scraping-artifact signature. term is trimmed;
// lower is its lowercase form.
type noiseRule struct {
	Name  string
	Match func(n *noise, term, lower string) bool
}

// noise evaluates the artifact battery against a lexicon.
type noise struct {
	lex         *lexicon.Lexicon
	companyCity *regexp.Regexp
	rules       []noiseRule
}

func newNoise(lex *lexicon.Lexicon) *noise {
	n := &noise{lex: lex, rules: noiseRules}
	if cities := lex.CompanyCities(); len(cities) > 0 {
		quoted := make([]string, len(cities))
		for i, c := range cities {
			quoted[i] = regexp.QuoteMeta(c)
		}
		n.companyCity = regexp.MustCompile(`[A-Z][a-z]+(?:[A-Z][a-z]+)*\s+(?:` + strings.Join(quoted, "|") + `)`)
	}
	return n
}

// Match returns the name of the first rule term trips, or "".
func (n *noise) Match(term string) string {
	term = strings.TrimSpace(term)
	lower := strings.ToLower(term)
	for _, r := range n.rules {
		if r.Match(n, term, lower) {
			return r.Name
		}
	}
	return ""
}

func matchTerm(p *regexp.Regexp) func(*noise, string, string) bool {
	return func(_ *noise, term, _ string) bool { return p.MatchString(term) }
}

func matchLower(p *regexp.Regexp) func(*noise, string, string) bool {
	return func(_ *noise, _, lower string) bool { return p.MatchString(lower) }
}

var noiseRules = []noiseRule{
	{"linkedin", func(_ *noise, _, lower string) bool { return strings.Contains(lower, "linkedin") }},
	{"plus_quantity", matchLower(plusQuantity)},
	{"statistic", matchLower(statistic)},
	{"hiring", func(_ *noise, _, lower string) bool {
		return strings.Contains(lower, "sec.gov") || strings.Contains(lower, "hiring")
	}},
	{"title_company", func(n *noise, term, lower string) bool {
		words := strings.Fields(lower)
		if !containsAny(words, n.lex.JobTitleWords()) {
			return false
		}
		if len(words) >= 3 && camelRun.MatchString(term) {
			return true
		}
		return titleTrailer.MatchString(lower)
	}},
	{"yc_batch", matchTerm(ycBatch)},
	{"job_reference", func(n *noise, term, lower string) bool {
		return jobReference.MatchString(term) && !n.lex.IsProtected(lower)
	}},
	{"level_code", func(n *noise, term, lower string) bool {
		return levelCode.MatchString(term) && !n.lex.IsProtected(lower)
	}},
	{"batch_code", func(n *noise, term, lower string) bool {
		return batchCode.MatchString(term) && !n.lex.IsProtected(lower)
	}},
	{"n_joined", matchTerm(nJoined)},
	{"glued_word", func(n *noise, term, _ string) bool {
		if len(term) <= 6 {
			return false
		}
		m := gluedWord.FindStringSubmatch(term)
		return m != nil && n.lex.IsConcatPrefix(m[1])
	}},
	{"unicode_escape", matchLower(unicodeEscape)},
	{"timestamp", matchTerm(timestamp)},
	{"k_salary", matchTerm(kSalary)},
	{"yr_bonus", matchLower(yrBonus)},
	{"price_range", matchTerm(priceRange)},
	{"employee_count", matchTerm(employeeRange)},
	{"numeric_unit", matchTerm(numericWithUnit)},
	{"date", func(_ *noise, term, _ string) bool {
		return slashDate.MatchString(term) || yearRange.MatchString(term)
	}},
	{"year_word", matchTerm(yearWord)},
	{"symbol_number", matchTerm(symbolNumber)},
	{"bullet", func(_ *noise, term, _ string) bool { return strings.HasPrefix(term, "·") }},
	{"paren_fragment", func(_ *noise, term, _ string) bool {
		return openParen.MatchString(term) || closeParen.MatchString(term)
	}},
	{"punctuation", matchTerm(punctuationOnly)},
	{"too_many_words", func(_ *noise, term, _ string) bool { return len(strings.Fields(term)) > 4 }},
	{"currency", matchTerm(currency)},
	{"url", func(n *noise, term, lower string) bool {
		if n.lex.IsProtected(lower) || strings.Contains(term, ".NET") {
			return false
		}
		return urlFragment.MatchString(term)
	}},
	{"usd", func(_ *noise, _, lower string) bool { return strings.Contains(lower, "usd") }},
	{"arr", matchTerm(arr)},
	{"hex", matchLower(hexString)},
	{"no_vowels", func(_ *noise, term, lower string) bool {
		return lettersOnly8.MatchString(term) && !strings.ContainsAny(lower, "aeiou")
	}},
	{"job_metadata", func(n *noise, _, lower string) bool {
		for _, p := range n.lex.MetadataPatterns() {
			if p.MatchString(lower) {
				return true
			}
		}
		return false
	}},
	{"location_fragment", func(n *noise, _, lower string) bool { return n.lex.IsLocationFragment(lower) }},
	{"company_city", func(n *noise, term, _ string) bool {
		return n.companyCity != nil && n.companyCity.MatchString(term)
	}},
	{"state_company", matchTerm(stateCompany)},
	{"locale_label", func(_ *noise, term, _ string) bool {
		return localeLabel.MatchString(term) || parenNonASCII.MatchString(term) || halfLocaleLabel.MatchString(term)
	}},
	{"non_ascii", func(_ *noise, term, _ string) bool {
		total, foreign := 0, 0
		for _, r := range term {
			total++
			if r > 127 {
				foreign++
			}
		}
		return float64(foreign) > float64(total)*0.3
	}},
	{"rate_range", matchTerm(rateRange)},
	{"company_suffix", func(n *noise, term, lower string) bool {
		if !camelPrefix.MatchString(term) || n.lex.IsProtected(lower) {
			return false
		}
		for _, suffix := range n.lex.CompanySuffixes() {
			if strings.HasSuffix(term, suffix) && utf8.RuneCountInString(term) > len(suffix)+2 {
				return true
			}
		}
		return false
	}},
	{"trademark", matchTerm(trademark)},
	{"about_prefix", matchTerm(aboutPrefix)},
	{"possessive_topic", matchLower(possessiveTopic)},
	{"name_audience", matchTerm(nameAudience)},
	{"numbered_id", matchTerm(numberedID)},
	{"random_case_id", matchTerm(randomCaseID)},
}

func containsAny(words, targets []string) bool {
	for _, w := range words {
		for _, t := range targets {
			if w == t {
				return true
			}
		}
	}
	return false
}
