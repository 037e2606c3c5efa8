package server

import (
	"net/http"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

type skillView struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Slug   string   `json:"slug"`
	Topics []string `json:"topics"`
}

type subdomainView struct {
	Name   string      `json:"name"`
	Slug   string      `json:"slug"`
	Color  string      `json:"color"`
	Icon   string      `json:"icon"`
	Skills []skillView `json:"skills"`
}

type domainView struct {
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	Subdomains []subdomainView `json:"subdomains"`
}

func taxonomyView(tax *taxonomy.Taxonomy) []domainView {
	out := make([]domainView, 0, len(tax.Domains))
	for _, d := range tax.Domains {
		dv := domainView{Name: d.Name, Slug: taxonomy.Slugify(d.Name)}
		for _, sd := range d.Subdomains {
			sv := subdomainView{
				Name:  sd.Name,
				Slug:  taxonomy.Slugify(sd.Name),
				Color: sd.Color,
				Icon:  sd.Icon,
			}
			for _, sk := range sd.Skills {
				sv.Skills = append(sv.Skills, skillView{
					Number: sk.Number,
					Name:   sk.Name,
					Slug:   taxonomy.Slugify(sk.Name),
					Topics: sk.Topics,
				})
			}
			dv.Subdomains = append(dv.Subdomains, sv)
		}
		out = append(out, dv)
	}
	return out
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"domains":    taxonomyView(s.tax),
		"skillCount": s.tax.SkillCount(),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	m, ok := s.tax.ResolveSlug(r.PathValue("slug"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no taxonomy node matches this slug"})
		return
	}
	sel := s.tax.ExpandToSelection(m)
	writeJSON(w, http.StatusOK, map[string]any{
		"match":     m,
		"selection": sel.Map(),
		"triples":   sel.Len(),
	})
}
