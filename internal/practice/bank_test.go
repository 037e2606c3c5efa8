package practice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/sat-prep/internal/practice"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBank_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "math", "algebra.json"), `[
  {"id": 1, "domain": "Algebra", "skill": "Linear functions", "difficulty": "Easy",
   "questionText": "What is the slope of y = 2x + 1?", "options": ["1", "2", "3", "4"],
   "correctOption": "B", "explanation": "The coefficient of x.", "imagePath": null},
  {"id": "alg-2", "domain": "Algebra", "skill": "Systems", "questionText": "Solve.",
   "options": ["a", "b"], "correctOption": "A"}
]`)
	writeFile(t, filepath.Join(dir, "rw.json"), `[
  {"id": "rw-1", "domain": "Words in Context", "skill": "Context clues",
   "questionText": "Which word fits?", "options": ["big", "small"], "correctOption": "A"},
  {"id": 1, "domain": "Boundaries", "skill": "Commas",
   "questionText": "Duplicate id.", "options": ["x"], "correctOption": "A"}
]`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	bank, err := practice.LoadBank(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, bank.Len())

	q, ok := bank.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Algebra", q.Domain)
	assert.Equal(t, []string{"1", "2", "3", "4"}, q.Options)
	assert.Empty(t, q.ImagePath)

	_, ok = bank.Get("rw-1")
	assert.True(t, ok)
	_, ok = bank.Get("missing")
	assert.False(t, ok)
}

func TestLoadBank_SkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a_missing_fields.json"), `[{"id": "x", "domain": "Algebra"}]`)
	writeFile(t, filepath.Join(dir, "b_not_json.json"), `{not json`)
	writeFile(t, filepath.Join(dir, "c_object.json"), `{"id": "x"}`)
	writeFile(t, filepath.Join(dir, "d_good.json"), `[
  {"id": "ok", "domain": "Algebra", "skill": "Linear functions",
   "questionText": "Q?", "options": ["a"], "correctOption": "A"}
]`)

	bank, err := practice.LoadBank(dir)
	require.NoError(t, err)
	require.Equal(t, 1, bank.Len())
	assert.Equal(t, practice.QuestionID("ok"), bank.All()[0].ID)
}

func TestLoadBank_MissingDir(t *testing.T) {
	_, err := practice.LoadBank(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadBank_XLSX(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"id", "domain", "skill", "Difficulty", "questionText", "optionA", "optionB", "optionC", "correctOption", "explanation"},
		{"x-1", "Circles", "Arc length", "Hard", "Find the arc length.", "2π", "3π", "4π", "C", "Use s = rθ."},
		{"", "Circles", "Arc length", "Hard", "No id, skipped.", "a", "b", "", "A", ""},
		{"x-2", "Transitions", "Logical transitions", "Medium", "Pick a transition.", "However", "Thus", "", "B", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "bank.xlsx")))
	require.NoError(t, f.Close())

	bank, err := practice.LoadBank(dir)
	require.NoError(t, err)
	require.Equal(t, 2, bank.Len())

	q, ok := bank.Get("x-1")
	require.True(t, ok)
	assert.Equal(t, "Circles", q.Domain)
	assert.Equal(t, "Hard", q.Difficulty)
	assert.Equal(t, []string{"2π", "3π", "4π"}, q.Options)
	assert.Equal(t, "C", q.CorrectOption)
	assert.True(t, q.CheckAnswer("4π"))

	q, ok = bank.Get("x-2")
	require.True(t, ok)
	assert.Equal(t, []string{"However", "Thus"}, q.Options)
}

func TestLoadBank_XLSXJoinedOptions(t *testing.T) {
	dir := t.TempDir()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []any{"id", "domain", "skill", "questionText", "options", "correctOption"}
	row := []any{"j-1", "Percentages", "Percent change", "Increase 50 by 10%.", "45 | 55 | 60", "B"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "joined.xlsx")))
	require.NoError(t, f.Close())

	bank, err := practice.LoadBank(dir)
	require.NoError(t, err)
	q, ok := bank.Get("j-1")
	require.True(t, ok)
	assert.Equal(t, []string{"45", "55", "60"}, q.Options)
	assert.Equal(t, "55", q.CorrectOptionText())
}

func TestNewBank_DropsDuplicatesAndBlankIDs(t *testing.T) {
	bank := practice.NewBank([]practice.Question{
		{ID: "a", Skill: "first"},
		{ID: "", Skill: "blank"},
		{ID: "a", Skill: "second"},
		{ID: "b"},
	})
	assert.Equal(t, 2, bank.Len())
	q, _ := bank.Get("a")
	assert.Equal(t, "first", q.Skill)

	all := bank.All()
	all[0].Skill = "mutated"
	q, _ = bank.Get("a")
	assert.Equal(t, "first", q.Skill)
}
