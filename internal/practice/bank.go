package practice

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xuri/excelize/v2"
)

// questionFileSchema describes a question bank JSON file.
const questionFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "domain", "skill", "questionText", "options", "correctOption"],
    "properties": {
      "id": {"type": ["string", "integer"]},
      "domain": {"type": "string"},
      "skill": {"type": "string"},
      "difficulty": {"type": "string"},
      "questionText": {"type": "string"},
      "options": {"type": "array", "items": {"type": "string"}},
      "correctOption": {"type": "string"},
      "explanation": {"type": "string"},
      "imagePath": {"type": ["string", "null"]}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func questionSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionFileSchema))
	})
	return schema, schemaErr
}

// Bank is an in-memory, read-only question collection.
type Bank struct {
	questions []Question
	byID      map[QuestionID]int
}

// NewBank builds a bank from questions. Later duplicates of an id are dropped.
func NewBank(questions []Question) *Bank {
	b := &Bank{byID: make(map[QuestionID]int, len(questions))}
	for _, q := range questions {
		b.add(q, "")
	}
	return b
}

// LoadBank reads every *.json and *.xlsx question file under dir. Files are
// read in lexical path order. A file that fails validation is skipped.
func LoadBank(dir string) (*Bank, error) {
	b := &Bank{byID: make(map[QuestionID]int)}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return b.loadJSON(path)
		case ".xlsx":
			return b.loadXLSX(path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	slog.Info("question bank loaded", "dir", dir, "questions", len(b.questions))
	return b, nil
}

// All returns every question in load order.
func (b *Bank) All() []Question {
	return append([]Question(nil), b.questions...)
}

// Get returns a question by id.
func (b *Bank) Get(id QuestionID) (Question, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

func (b *Bank) add(q Question, source string) {
	if q.ID == "" {
		return
	}
	if _, dup := b.byID[q.ID]; dup {
		slog.Warn("skipping duplicate question id", "id", q.ID, "path", source)
		return
	}
	b.byID[q.ID] = len(b.questions)
	b.questions = append(b.questions, q)
}

func (b *Bank) loadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	s, err := questionSchema()
	if err != nil {
		return fmt.Errorf("compiling question schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		slog.Warn("skipping unreadable question file", "path", path, "error", err)
		return nil
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		slog.Warn("skipping invalid question file", "path", path, "errors", problems)
		return nil
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		slog.Warn("skipping invalid question file", "path", path, "error", err)
		return nil
	}
	for _, q := range questions {
		b.add(q, path)
	}
	return nil
}

// loadXLSX reads the first sheet of a workbook. The first row is a header;
// recognised columns are id, domain, skill, difficulty, questionText,
// optionA..optionF (or a single "options" column split on "|"),
// correctOption, explanation and imagePath.
func (b *Bank) loadXLSX(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		slog.Warn("skipping unreadable workbook", "path", path, "error", err)
		return nil
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		slog.Warn("skipping unreadable workbook", "path", path, "error", err)
		return nil
	}
	if len(rows) < 2 {
		return nil
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for _, row := range rows[1:] {
		q := Question{
			ID:            QuestionID(cell(row, "id")),
			Domain:        cell(row, "domain"),
			Skill:         cell(row, "skill"),
			Difficulty:    cell(row, "difficulty"),
			QuestionText:  cell(row, "questionText"),
			CorrectOption: cell(row, "correctOption"),
			Explanation:   cell(row, "explanation"),
			ImagePath:     cell(row, "imagePath"),
		}
		if q.ID == "" || q.QuestionText == "" {
			continue
		}
		if joined := cell(row, "options"); joined != "" {
			for _, opt := range strings.Split(joined, "|") {
				q.Options = append(q.Options, strings.TrimSpace(opt))
			}
		} else {
			for _, letter := range "ABCDEF" {
				if opt := cell(row, "option"+string(letter)); opt != "" {
					q.Options = append(q.Options, opt)
				}
			}
		}
		b.add(q, path)
	}
	return nil
}
