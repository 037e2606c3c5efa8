// Package taxonomy holds the fixed SAT skill taxonomy (Domain → Subdomain → Skill → Topics)
// and resolves URL slugs and nested selections against it.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultDocument []byte

// Taxonomy is the immutable, ordered three-level skill tree.
type Taxonomy struct {
	Domains []Domain `yaml:"domains" json:"domains"`

	skillsByName     map[string]SkillRef
	skillsByNumber   map[int]SkillRef
	subdomainsByName map[string]SubdomainRef
	ordered          []SkillRef
}

// Domain is a top-level subject area.
type Domain struct {
	Name       string      `yaml:"name" json:"name"`
	Subdomains []Subdomain `yaml:"subdomains" json:"subdomains"`
}

// Subdomain groups skills inside a domain (e.g. Algebra).
type Subdomain struct {
	Name   string  `yaml:"name" json:"name"`
	Color  string  `yaml:"color" json:"color"`
	Icon   string  `yaml:"icon" json:"icon"`
	Skills []Skill `yaml:"skills" json:"skills"`
}

// Skill is an individually numbered competency.
type Skill struct {
	Number int      `yaml:"number" json:"number"`
	Name   string   `yaml:"name" json:"name"`
	Topics []string `yaml:"topics" json:"topics"`
}

// SkillRef locates a skill inside the tree.
type SkillRef struct {
	Domain    string
	Subdomain string
	Color     string
	Icon      string
	Skill     Skill
}

// SubdomainRef locates a subdomain inside the tree.
type SubdomainRef struct {
	Domain    string
	Subdomain Subdomain
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the embedded taxonomy. It is parsed once per process.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := Parse(defaultDocument)
		if err != nil {
			panic(fmt.Sprintf("taxonomy: embedded document is invalid: %v", err))
		}
		defaultTax = t
	})
	return defaultTax
}

// Parse decodes and validates a taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding taxonomy: %w", err)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) index() error {
	t.skillsByName = make(map[string]SkillRef)
	t.skillsByNumber = make(map[int]SkillRef)
	t.subdomainsByName = make(map[string]SubdomainRef)
	t.ordered = nil

	if len(t.Domains) != 2 {
		return fmt.Errorf("taxonomy must have exactly 2 domains, got %d", len(t.Domains))
	}

	for i := range t.Domains {
		d := &t.Domains[i]
		canonical, ok := CanonicalDomain(d.Name)
		if !ok {
			return fmt.Errorf("unknown domain %q", d.Name)
		}
		d.Name = canonical

		for _, sd := range d.Subdomains {
			if len(sd.Skills) == 0 {
				return fmt.Errorf("subdomain %q has no skills", sd.Name)
			}
			key := foldKey(sd.Name)
			if _, dup := t.subdomainsByName[key]; dup {
				return fmt.Errorf("duplicate subdomain %q", sd.Name)
			}
			t.subdomainsByName[key] = SubdomainRef{Domain: d.Name, Subdomain: sd}

			for _, sk := range sd.Skills {
				ref := SkillRef{
					Domain:    d.Name,
					Subdomain: sd.Name,
					Color:     sd.Color,
					Icon:      sd.Icon,
					Skill:     sk,
				}
				if _, dup := t.skillsByName[foldKey(sk.Name)]; dup {
					return fmt.Errorf("duplicate skill %q", sk.Name)
				}
				if _, dup := t.skillsByNumber[sk.Number]; dup {
					return fmt.Errorf("duplicate skill number %d (%q)", sk.Number, sk.Name)
				}
				t.skillsByName[foldKey(sk.Name)] = ref
				t.skillsByNumber[sk.Number] = ref
				t.ordered = append(t.ordered, ref)
			}
		}
	}

	// Numbers must form the dense range 1..N.
	for n := 1; n <= len(t.ordered); n++ {
		if _, ok := t.skillsByNumber[n]; !ok {
			return fmt.Errorf("skill numbers are not dense: %d is missing", n)
		}
	}
	return nil
}

// SkillCount returns the total number of skills across both domains.
func (t *Taxonomy) SkillCount() int {
	return len(t.ordered)
}

// Skills returns every skill in taxonomy order.
func (t *Taxonomy) Skills() []SkillRef {
	return append([]SkillRef(nil), t.ordered...)
}

// SkillsIn returns the skills of one domain in taxonomy order.
func (t *Taxonomy) SkillsIn(domain string) []SkillRef {
	canonical, ok := CanonicalDomain(domain)
	if !ok {
		return nil
	}
	var out []SkillRef
	for _, ref := range t.ordered {
		if ref.Domain == canonical {
			out = append(out, ref)
		}
	}
	return out
}

// Domain returns a domain by any accepted spelling of its name.
func (t *Taxonomy) Domain(name string) (Domain, bool) {
	canonical, ok := CanonicalDomain(name)
	if !ok {
		return Domain{}, false
	}
	for _, d := range t.Domains {
		if d.Name == canonical {
			return d, true
		}
	}
	return Domain{}, false
}

// Subdomain returns a subdomain by case-insensitive name.
func (t *Taxonomy) Subdomain(name string) (SubdomainRef, bool) {
	ref, ok := t.subdomainsByName[foldKey(name)]
	return ref, ok
}

// SkillByName returns a skill by case-insensitive name.
func (t *Taxonomy) SkillByName(name string) (SkillRef, bool) {
	ref, ok := t.skillsByName[foldKey(name)]
	return ref, ok
}

// SkillByNumber returns the skill with the given fixed number.
func (t *Taxonomy) SkillByNumber(n int) (SkillRef, bool) {
	ref, ok := t.skillsByNumber[n]
	return ref, ok
}

// SkillNumber returns the fixed number of a skill name.
func (t *Taxonomy) SkillNumber(name string) (int, bool) {
	ref, ok := t.skillsByName[foldKey(name)]
	if !ok {
		return 0, false
	}
	return ref.Skill.Number, true
}

// InferDomain maps a question's loosely typed domain label (a subdomain or
// skill name) to its main domain. Unknown labels are returned unchanged.
func (t *Taxonomy) InferDomain(label string) string {
	if ref, ok := t.subdomainsByName[foldKey(label)]; ok {
		return ref.Domain
	}
	if ref, ok := t.skillsByName[foldKey(label)]; ok {
		return ref.Domain
	}
	if canonical, ok := CanonicalDomain(label); ok {
		return canonical
	}
	return label
}

// InferSubdomain maps a subdomain or skill label to its subdomain name.
func (t *Taxonomy) InferSubdomain(label string) (string, bool) {
	if ref, ok := t.subdomainsByName[foldKey(label)]; ok {
		return ref.Subdomain.Name, true
	}
	if ref, ok := t.skillsByName[foldKey(label)]; ok {
		return ref.Subdomain, true
	}
	return "", false
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
