package taxonomy

import "sort"

// Triple is one selected (domain, subdomain, skill) combination. Skill holds
// whatever leaf label the caller selected, usually a skill or topic name.
type Triple struct {
	Domain    string `json:"mainDomain"`
	Subdomain string `json:"subdomain"`
	Skill     string `json:"skill"`
}

// Selection is an ordered set of triples.
type Selection struct {
	triples []Triple
	seen    map[Triple]struct{}
}

// NewSelection builds a selection from triples, dropping duplicates.
func NewSelection(triples ...Triple) Selection {
	var s Selection
	for _, t := range triples {
		s.Add(t)
	}
	return s
}

// Add inserts t and reports whether it was new.
func (s *Selection) Add(t Triple) bool {
	if s.seen == nil {
		s.seen = make(map[Triple]struct{})
	}
	if _, ok := s.seen[t]; ok {
		return false
	}
	s.seen[t] = struct{}{}
	s.triples = append(s.triples, t)
	return true
}

// Contains reports whether t is selected.
func (s Selection) Contains(t Triple) bool {
	_, ok := s.seen[t]
	return ok
}

// Len returns the number of triples.
func (s Selection) Len() int {
	return len(s.triples)
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.triples) == 0
}

// Triples returns the triples in insertion order.
func (s Selection) Triples() []Triple {
	return append([]Triple(nil), s.triples...)
}

// Map converts the selection to the nested boolean form used by the UI.
func (s Selection) Map() SelectionMap {
	m := make(SelectionMap)
	for _, t := range s.triples {
		if m[t.Domain] == nil {
			m[t.Domain] = make(map[string]map[string]bool)
		}
		if m[t.Domain][t.Subdomain] == nil {
			m[t.Domain][t.Subdomain] = make(map[string]bool)
		}
		m[t.Domain][t.Subdomain][t.Skill] = true
	}
	return m
}

// SelectionMap is the sparse nested selection {Domain: {Subdomain: {Skill: true}}}.
// Absent or false leaves are unselected.
type SelectionMap map[string]map[string]map[string]bool

// FlattenSelection emits one triple per true leaf of m. Keys are visited in
// sorted order so the result is deterministic.
func FlattenSelection(m SelectionMap) Selection {
	var s Selection
	for _, domain := range sortedKeys(m) {
		subs := m[domain]
		for _, sub := range sortedKeys(subs) {
			leaves := subs[sub]
			for _, skill := range sortedKeys(leaves) {
				if leaves[skill] {
					s.Add(Triple{Domain: domain, Subdomain: sub, Skill: skill})
				}
			}
		}
	}
	return s
}

// ExpandToSelection selects everything beneath a resolved match: every skill
// of a domain, every skill of a subdomain, or the single matched skill.
func (t *Taxonomy) ExpandToSelection(m Match) Selection {
	var s Selection
	for _, d := range t.Domains {
		if d.Name != m.Domain {
			continue
		}
		for _, sd := range d.Subdomains {
			if m.Kind != MatchDomain && sd.Name != subdomainOf(m) {
				continue
			}
			for _, sk := range sd.Skills {
				if m.Kind == MatchSkill && sk.Name != m.Name {
					continue
				}
				s.Add(Triple{Domain: d.Name, Subdomain: sd.Name, Skill: sk.Name})
			}
		}
	}
	return s
}

func subdomainOf(m Match) string {
	if m.Kind == MatchSubdomain {
		return m.Name
	}
	return m.Subdomain
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
