// Package roadmap builds the interleaved, weakest-first study order from
// per-subdomain proficiency ratings and tracks a learner's progress through it.
package roadmap

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

// Skill is one taxonomy skill with the learner's rating of its subdomain.
type Skill struct {
	Domain      string   `json:"domain"`
	Category    string   `json:"category"`
	Name        string   `json:"name"`
	Level       int      `json:"level"`
	Subskills   []string `json:"subskills"`
	SkillNumber int      `json:"skillNumber"`
}

// BuildSkillList flattens the taxonomy into skills in taxonomy order. Each
// skill takes the level of its subdomain from proficiency, or
// DefaultProficiency when the subdomain is unrated. Subdomain keys are
// matched case-insensitively.
func BuildSkillList(tax *taxonomy.Taxonomy, proficiency map[string]int) []Skill {
	levels := make(map[string]int, len(proficiency))
	for name, level := range proficiency {
		levels[strings.ToLower(strings.TrimSpace(name))] = level
	}

	refs := tax.Skills()
	out := make([]Skill, 0, len(refs))
	for _, ref := range refs {
		level, ok := levels[strings.ToLower(ref.Subdomain)]
		if !ok {
			level = DefaultProficiency
		}
		out = append(out, Skill{
			Domain:      ref.Domain,
			Category:    ref.Subdomain,
			Name:        ref.Skill.Name,
			Level:       level,
			Subskills:   append([]string(nil), ref.Skill.Topics...),
			SkillNumber: ref.Skill.Number,
		})
	}
	return out
}

// TieBreaker orders skills before they are stably sorted by level, which
// decides the relative order of skills sharing a level.
type TieBreaker interface {
	Arrange(skills []Skill)
}

// StableTieBreak keeps equal-level skills in taxonomy order.
type StableTieBreak struct{}

func (StableTieBreak) Arrange([]Skill) {}

// RandomTieBreak shuffles equal-level skills. It is safe for concurrent use.
type RandomTieBreak struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomTieBreak creates a random tie-break seeded with seed. The same
// seed always produces the same orderings.
func NewRandomTieBreak(seed uint64) *RandomTieBreak {
	return &RandomTieBreak{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *RandomTieBreak) Arrange(skills []Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(len(skills), func(i, j int) {
		skills[i], skills[j] = skills[j], skills[i]
	})
}

// NewTieBreaker returns the policy named by mode ("stable" or "random").
// A zero seed with the random policy seeds from the runtime source.
func NewTieBreaker(mode string, seed uint64) TieBreaker {
	if mode == TieBreakStable {
		return StableTieBreak{}
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return NewRandomTieBreak(seed)
}

// Tie-break policy names.
const (
	TieBreakRandom = "random"
	TieBreakStable = "stable"
)

// SortWeakestFirst returns skills ordered by ascending level. The input is
// not modified. A nil tie-break behaves like StableTieBreak.
func SortWeakestFirst(skills []Skill, tb TieBreaker) []Skill {
	out := slices.Clone(skills)
	if tb != nil {
		tb.Arrange(out)
	}
	slices.SortStableFunc(out, func(a, b Skill) int {
		return a.Level - b.Level
	})
	return out
}

// Interleave alternates Reading and Writing and Math skills, starting with
// Reading and Writing. Once one list runs out the rest of the other follows.
func Interleave(math, reading []Skill) []Skill {
	out := make([]Skill, 0, len(math)+len(reading))
	mi, ri := 0, 0
	preferReading := true
	for mi < len(math) || ri < len(reading) {
		switch {
		case preferReading && ri < len(reading):
			out = append(out, reading[ri])
			ri++
			preferReading = false
		case mi < len(math):
			out = append(out, math[mi])
			mi++
			preferReading = true
		default:
			out = append(out, reading[ri])
			ri++
		}
	}
	return out
}

// SplitDomains separates skills into Math and Reading and Writing lists,
// keeping their order.
func SplitDomains(skills []Skill) (math, reading []Skill) {
	for _, s := range skills {
		if taxonomy.IsMath(s.Domain) {
			math = append(math, s)
		} else {
			reading = append(reading, s)
		}
	}
	return math, reading
}

// Sequence runs the full pipeline: build, sort weakest first, interleave.
func Sequence(tax *taxonomy.Taxonomy, proficiency map[string]int, tb TieBreaker) []Skill {
	sorted := SortWeakestFirst(BuildSkillList(tax, proficiency), tb)
	return Interleave(SplitDomains(sorted))
}

// Encode joins the skill numbers of skills with "-".
func Encode(skills []Skill) string {
	parts := make([]string, len(skills))
	for i, s := range skills {
		parts[i] = strconv.Itoa(s.SkillNumber)
	}
	return strings.Join(parts, "-")
}
