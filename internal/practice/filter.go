package practice

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

// minKeywordLen is the rune length a word must exceed to count as a keyword
// in the loose subdomain and skill comparisons.
const minKeywordLen = 3

// readingCategoryHints are fragments of Reading and Writing subdomain names
// used when a question's domain label does not name the domain itself.
var readingCategoryHints = []string{"craft", "information", "expression", "standard"}

// Matcher applies the tolerant topic filter. It favours recall: a question is
// kept when it loosely matches any selected triple.
type Matcher struct {
	tax *taxonomy.Taxonomy
}

// NewMatcher creates a matcher over tax. A nil taxonomy uses the embedded one.
func NewMatcher(tax *taxonomy.Taxonomy) *Matcher {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Matcher{tax: tax}
}

// FilterQuestions filters with the embedded taxonomy.
func FilterQuestions(questions []Question, sel taxonomy.Selection) []Question {
	return NewMatcher(nil).Filter(questions, sel)
}

// Filter returns the questions that match at least one triple of sel, in
// their original order. An empty selection returns questions unchanged.
func (m *Matcher) Filter(questions []Question, sel taxonomy.Selection) []Question {
	if sel.Empty() {
		return questions
	}
	triples := sel.Triples()
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		for _, t := range triples {
			if m.Matches(q, t) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

// Matches reports whether q satisfies the domain, subdomain and skill
// predicates for t. All three must hold.
func (m *Matcher) Matches(q Question, t taxonomy.Triple) bool {
	if !domainMatches(m.tax.InferDomain(q.Domain), t.Domain) {
		return false
	}
	inferred, _ := m.tax.InferSubdomain(q.Domain)
	if !subdomainMatches(q.Domain, inferred, t.Subdomain) {
		return false
	}
	return skillMatches(q.Skill, t.Skill)
}

// domainMatches compares the question's inferred domain with the selected
// one. Known spellings of the selected domain are normalised first.
func domainMatches(question, selected string) bool {
	if c, ok := taxonomy.CanonicalDomain(selected); ok {
		selected = c
	}
	q, s := fold(question), fold(selected)
	if q == "" || s == "" {
		return false
	}
	if strings.Contains(s, "math") {
		return strings.Contains(q, "math")
	}
	if isReadingFamily(s) || hasReadingCategory(s) {
		return isReadingFamily(q) || hasReadingCategory(q)
	}
	return strings.Contains(q, s) || strings.Contains(s, q)
}

func isReadingFamily(s string) bool {
	return strings.Contains(s, "reading") || strings.Contains(s, "writing")
}

func hasReadingCategory(s string) bool {
	for _, hint := range readingCategoryHints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}

// subdomainMatches compares the selected subdomain against the question's raw
// domain label and, when known, the subdomain that label belongs to.
func subdomainMatches(raw, inferred, selected string) bool {
	s := fold(selected)
	if s == "" {
		return false
	}
	candidates := []string{fold(raw)}
	if inf := fold(inferred); inf != "" && inf != candidates[0] {
		candidates = append(candidates, inf)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if strings.Contains(c, s) || strings.Contains(s, c) {
			return true
		}
		if anyKeywordIn(s, c) {
			return true
		}
	}
	return false
}

func skillMatches(question, selected string) bool {
	q, s := fold(question), fold(selected)
	if q == "" || s == "" {
		return false
	}
	if strings.Contains(q, s) || strings.Contains(s, q) {
		return true
	}
	return anyKeywordIn(s, q) || anyKeywordIn(q, s)
}

// anyKeywordIn reports whether a word of from longer than minKeywordLen runes
// occurs as a substring of in.
func anyKeywordIn(from, in string) bool {
	for _, w := range strings.Fields(from) {
		if utf8.RuneCountInString(w) > minKeywordLen && strings.Contains(in, w) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}
