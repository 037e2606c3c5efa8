package taxonomy

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify turns a label into a URL path segment. It is total and idempotent.
func Slugify(label string) string {
	s := strings.ToLower(label)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// MatchKind is the taxonomy level a slug resolved to.
type MatchKind int

const (
	MatchDomain MatchKind = iota + 1
	MatchSubdomain
	MatchSkill
)

func (k MatchKind) String() string {
	switch k {
	case MatchDomain:
		return "domain"
	case MatchSubdomain:
		return "subdomain"
	case MatchSkill:
		return "skill"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind as its name.
func (k MatchKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *MatchKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "domain":
		*k = MatchDomain
	case "subdomain":
		*k = MatchSubdomain
	case "skill":
		*k = MatchSkill
	default:
		return fmt.Errorf("unknown match kind %q", s)
	}
	return nil
}

// Match is a resolved slug. Domain is always set; Subdomain is set for
// subdomain and skill matches.
type Match struct {
	Kind      MatchKind `json:"type"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Subdomain string    `json:"subdomain,omitempty"`
}

// ResolveSlug finds the taxonomy node whose slug equals slug. Domains are
// searched first, then subdomains, then skills; the first hit wins.
// The input is slugified before comparison so "Algebra" and "algebra" resolve alike.
func (t *Taxonomy) ResolveSlug(slug string) (Match, bool) {
	want := Slugify(slug)
	if want == "" {
		return Match{}, false
	}

	for _, d := range t.Domains {
		if Slugify(d.Name) == want {
			return Match{Kind: MatchDomain, Name: d.Name, Domain: d.Name}, true
		}
	}
	for _, d := range t.Domains {
		for _, sd := range d.Subdomains {
			if Slugify(sd.Name) == want {
				return Match{Kind: MatchSubdomain, Name: sd.Name, Domain: d.Name}, true
			}
		}
	}
	for _, d := range t.Domains {
		for _, sd := range d.Subdomains {
			for _, sk := range sd.Skills {
				if Slugify(sk.Name) == want {
					return Match{Kind: MatchSkill, Name: sk.Name, Domain: d.Name, Subdomain: sd.Name}, true
				}
			}
		}
	}
	return Match{}, false
}
