package taxonomy

import "strings"

// Canonical domain names.
const (
	DomainMath           = "Math"
	DomainReadingWriting = "Reading and Writing"
)

// domainAliases maps the spellings seen across pages and question files to
// the canonical domain names.
var domainAliases = map[string]string{
	"math":                DomainMath,
	"maths":               DomainMath,
	"mathematics":         DomainMath,
	"sat math":            DomainMath,
	"reading and writing": DomainReadingWriting,
	"reading & writing":   DomainReadingWriting,
	"reading-writing":     DomainReadingWriting,
	"reading/writing":     DomainReadingWriting,
	"reading-and-writing": DomainReadingWriting,
	"reading writing":     DomainReadingWriting,
	"rw":                  DomainReadingWriting,
	"english":             DomainReadingWriting,
}

// CanonicalDomain normalises a domain name. It reports false for names that
// are not one of the two domains.
func CanonicalDomain(name string) (string, bool) {
	c, ok := domainAliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// IsMath reports whether name refers to the Math domain.
func IsMath(name string) bool {
	c, ok := CanonicalDomain(name)
	return ok && c == DomainMath
}
