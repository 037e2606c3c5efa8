package taxonomy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

func TestDefault_Shape(t *testing.T) {
	tax := taxonomy.Default()

	require.Len(t, tax.Domains, 2)
	assert.Equal(t, 29, tax.SkillCount())
	assert.Len(t, tax.SkillsIn(taxonomy.DomainMath), 19)
	assert.Len(t, tax.SkillsIn(taxonomy.DomainReadingWriting), 10)

	seen := make(map[int]bool)
	for _, ref := range tax.Skills() {
		assert.False(t, seen[ref.Skill.Number], "duplicate number %d", ref.Skill.Number)
		seen[ref.Skill.Number] = true
		assert.NotEmpty(t, ref.Skill.Topics, "skill %q has no topics", ref.Skill.Name)
	}
	for n := 1; n <= 29; n++ {
		assert.True(t, seen[n], "skill number %d missing", n)
	}
}

func TestSkillNumbers_Fixed(t *testing.T) {
	tax := taxonomy.Default()

	tests := []struct {
		name string
		want int
	}{
		{"Central Ideas and Details", 1},
		{"Words in Context", 4},
		{"Form, Structure, and Sense", 10},
		{"Linear equations in one variable", 11},
		{"Linear inequalities in one or two variables", 15},
		{"Equivalent expressions", 18},
		{"Circles", 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := tax.SkillNumber(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, n)

			ref, ok := tax.SkillByNumber(tt.want)
			require.True(t, ok)
			assert.Equal(t, tt.name, ref.Skill.Name)
		})
	}
}

func TestSkillByName_CaseInsensitive(t *testing.T) {
	ref, ok := taxonomy.Default().SkillByName("  words IN context ")
	require.True(t, ok)
	assert.Equal(t, "Craft and Structure", ref.Subdomain)
	assert.Equal(t, taxonomy.DomainReadingWriting, ref.Domain)
	assert.NotEmpty(t, ref.Color)
	assert.NotEmpty(t, ref.Icon)
}

func TestInferDomain(t *testing.T) {
	tax := taxonomy.Default()

	tests := []struct {
		label string
		want  string
	}{
		{"Algebra", taxonomy.DomainMath},
		{"Words in Context", taxonomy.DomainReadingWriting},
		{"craft and structure", taxonomy.DomainReadingWriting},
		{"Circles", taxonomy.DomainMath},
		{"Reading & Writing", taxonomy.DomainReadingWriting},
		{"Something Else", "Something Else"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, tax.InferDomain(tt.label))
		})
	}
}

func TestInferSubdomain(t *testing.T) {
	tax := taxonomy.Default()

	sub, ok := tax.InferSubdomain("Words in Context")
	require.True(t, ok)
	assert.Equal(t, "Craft and Structure", sub)

	sub, ok = tax.InferSubdomain("Advanced Math")
	require.True(t, ok)
	assert.Equal(t, "Advanced Math", sub)

	_, ok = tax.InferSubdomain("Trivia")
	assert.False(t, ok)
}

func TestCanonicalDomain(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Math", taxonomy.DomainMath, true},
		{"mathematics", taxonomy.DomainMath, true},
		{"Reading and Writing", taxonomy.DomainReadingWriting, true},
		{"reading-writing", taxonomy.DomainReadingWriting, true},
		{"Reading/Writing", taxonomy.DomainReadingWriting, true},
		{"Science", "", false},
	}
	for _, tt := range tests {
		got, ok := taxonomy.CanonicalDomain(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.True(t, taxonomy.IsMath("SAT Math"))
	assert.False(t, taxonomy.IsMath("English"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "domains: [unclosed"},
		{"one domain", `
domains:
  - name: Math
    subdomains:
      - name: Algebra
        skills:
          - {number: 1, name: Linear functions}
`},
		{"unknown domain", `
domains:
  - name: Math
    subdomains:
      - name: Algebra
        skills:
          - {number: 1, name: Linear functions}
  - name: Science
    subdomains:
      - name: Physics
        skills:
          - {number: 2, name: Motion}
`},
		{"duplicate number", `
domains:
  - name: Math
    subdomains:
      - name: Algebra
        skills:
          - {number: 1, name: Linear functions}
  - name: Reading and Writing
    subdomains:
      - name: Craft and Structure
        skills:
          - {number: 1, name: Words in Context}
`},
		{"gap in numbers", `
domains:
  - name: Math
    subdomains:
      - name: Algebra
        skills:
          - {number: 1, name: Linear functions}
  - name: Reading and Writing
    subdomains:
      - name: Craft and Structure
        skills:
          - {number: 3, name: Words in Context}
`},
		{"empty subdomain", `
domains:
  - name: Math
    subdomains:
      - name: Algebra
  - name: Reading and Writing
    subdomains:
      - name: Craft and Structure
        skills:
          - {number: 1, name: Words in Context}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taxonomy.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_NormalisesDomainNames(t *testing.T) {
	tax, err := taxonomy.Parse([]byte(`
domains:
  - name: mathematics
    subdomains:
      - name: Algebra
        skills:
          - {number: 1, name: Linear functions}
  - name: Reading & Writing
    subdomains:
      - name: Craft and Structure
        skills:
          - {number: 2, name: Words in Context}
`))
	require.NoError(t, err)
	assert.Equal(t, taxonomy.DomainMath, tax.Domains[0].Name)
	assert.Equal(t, taxonomy.DomainReadingWriting, tax.Domains[1].Name)
}
