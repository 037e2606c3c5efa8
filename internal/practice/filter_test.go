package practice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

func sampleQuestions() []practice.Question {
	return []practice.Question{
		{ID: "rw-1", Domain: "Words in Context", Skill: "Context clues basics"},
		{ID: "rw-2", Domain: "Boundaries", Skill: "Comma splices"},
		{ID: "rw-3", Domain: "Craft and Structure", Skill: "Author's purpose"},
		{ID: "m-1", Domain: "Algebra", Skill: "Linear functions"},
		{ID: "m-2", Domain: "Linear equations in one variable", Skill: "Solving for x"},
		{ID: "m-3", Domain: "Geometry and Trigonometry", Skill: "Circles"},
		{ID: "m-4", Domain: "Advanced Math", Skill: "Quadratic functions"},
		{ID: "blank", Domain: "", Skill: ""},
	}
}

func ids(qs []practice.Question) []practice.QuestionID {
	out := make([]practice.QuestionID, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestFilterQuestions_EmptySelectionIsIdentity(t *testing.T) {
	qs := sampleQuestions()
	got := practice.FilterQuestions(qs, taxonomy.Selection{})
	assert.Equal(t, qs, got)
}

func TestFilterQuestions_ContextClues(t *testing.T) {
	q := practice.Question{ID: "1", Domain: "Words in Context", Skill: "Context clues basics"}
	sel := taxonomy.NewSelection(taxonomy.Triple{
		Domain:    "Reading and Writing",
		Subdomain: "Craft and Structure",
		Skill:     "Context clues",
	})

	got := practice.FilterQuestions([]practice.Question{q}, sel)
	require.Len(t, got, 1)
	assert.Equal(t, q, got[0])
}

func TestFilterQuestions_SkillSlug(t *testing.T) {
	tax := taxonomy.Default()
	m, ok := tax.ResolveSlug("linear-functions")
	require.True(t, ok)

	got := practice.FilterQuestions(sampleQuestions(), tax.ExpandToSelection(m))
	assert.Equal(t, []practice.QuestionID{"m-1"}, ids(got))
}

func TestFilterQuestions_DomainSlug(t *testing.T) {
	tax := taxonomy.Default()
	m, ok := tax.ResolveSlug("math")
	require.True(t, ok)

	got := practice.FilterQuestions(sampleQuestions(), tax.ExpandToSelection(m))
	for _, q := range got {
		assert.Contains(t, []practice.QuestionID{"m-1", "m-2", "m-3", "m-4"}, q.ID)
	}
	assert.Contains(t, ids(got), practice.QuestionID("m-1"))
	assert.Contains(t, ids(got), practice.QuestionID("m-3"))
	assert.Contains(t, ids(got), practice.QuestionID("m-4"))
}

func TestFilterQuestions_PreservesOrderAndDedups(t *testing.T) {
	sel := taxonomy.NewSelection(
		taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "Linear functions"},
		taxonomy.Triple{Domain: "Math", Subdomain: "Geometry and Trigonometry", Skill: "Circles"},
		taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "Linear"},
	)
	got := practice.FilterQuestions(sampleQuestions(), sel)
	assert.Equal(t, []practice.QuestionID{"m-1", "m-3"}, ids(got))
}

func TestFilterQuestions_NoMatchIsEmpty(t *testing.T) {
	sel := taxonomy.NewSelection(taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "Trigonometric identities"})
	got := practice.FilterQuestions(sampleQuestions(), sel)
	assert.Empty(t, got)
}

func TestMatcher_Predicates(t *testing.T) {
	m := practice.NewMatcher(nil)

	tests := []struct {
		name string
		q    practice.Question
		t    taxonomy.Triple
		want bool
	}{
		{
			name: "math question never matches reading domain",
			q:    practice.Question{Domain: "Algebra", Skill: "Linear functions"},
			t:    taxonomy.Triple{Domain: "Reading and Writing", Subdomain: "Algebra", Skill: "Linear functions"},
			want: false,
		},
		{
			name: "reading category hint on unknown label",
			q:    practice.Question{Domain: "Standard Conventions Review", Skill: "Boundaries drill"},
			t:    taxonomy.Triple{Domain: "Reading & Writing", Subdomain: "Standard English Conventions", Skill: "Boundaries"},
			want: true,
		},
		{
			name: "english is reading and writing",
			q:    practice.Question{Domain: "Words in Context", Skill: "Context clues basics"},
			t:    taxonomy.Triple{Domain: "English", Subdomain: "Craft and Structure", Skill: "Context clues"},
			want: true,
		},
		{
			name: "rw is reading and writing",
			q:    practice.Question{Domain: "Words in Context", Skill: "Context clues basics"},
			t:    taxonomy.Triple{Domain: "RW", Subdomain: "Craft and Structure", Skill: "Context clues"},
			want: true,
		},
		{
			name: "sat math is math",
			q:    practice.Question{Domain: "Algebra", Skill: "Linear functions"},
			t:    taxonomy.Triple{Domain: "SAT Math", Subdomain: "Algebra", Skill: "Linear functions"},
			want: true,
		},
		{
			name: "english never matches a math question",
			q:    practice.Question{Domain: "Algebra", Skill: "Linear functions"},
			t:    taxonomy.Triple{Domain: "English", Subdomain: "Algebra", Skill: "Linear functions"},
			want: false,
		},
		{
			name: "unknown label without math is not math",
			q:    practice.Question{Domain: "Geometry basics", Skill: "Circles"},
			t:    taxonomy.Triple{Domain: "Math", Subdomain: "Geometry and Trigonometry", Skill: "Circles"},
			want: false,
		},
		{
			name: "three letter words are not keywords",
			q:    practice.Question{Domain: "Algebra", Skill: "the sum"},
			t:    taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "sum the"},
			want: false,
		},
		{
			name: "shared keyword",
			q:    practice.Question{Domain: "Algebra", Skill: "slope intercept"},
			t:    taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "Finding the slope"},
			want: true,
		},
		{
			name: "case insensitive containment",
			q:    practice.Question{Domain: "ALGEBRA", Skill: "LINEAR FUNCTIONS"},
			t:    taxonomy.Triple{Domain: "math", Subdomain: "algebra", Skill: "linear functions"},
			want: true,
		},
		{
			name: "empty question fields never match",
			q:    practice.Question{},
			t:    taxonomy.Triple{Domain: "Math", Subdomain: "Algebra", Skill: "Linear functions"},
			want: false,
		},
		{
			name: "empty triple fields never match",
			q:    practice.Question{Domain: "Algebra", Skill: "Linear functions"},
			t:    taxonomy.Triple{},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.q, tt.t))
		})
	}
}
