// Package practice filters the question bank against topic selections and
// runs practice sessions over the result.
package practice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionID identifies a question. Question files use both string and
// numeric ids, so both decode into the same string form.
type QuestionID string

// UnmarshalJSON accepts a JSON string or number.
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a string or number: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

// Question is one practice question as stored in the bank.
//
// Domain is a skill- or subdomain-level label despite its name, and Skill is
// a free-text label rather than a taxonomy skill.
type Question struct {
	ID            QuestionID `json:"id"`
	Domain        string     `json:"domain"`
	Skill         string     `json:"skill"`
	Difficulty    string     `json:"difficulty,omitempty"`
	QuestionText  string     `json:"questionText"`
	Options       []string   `json:"options"`
	CorrectOption string     `json:"correctOption"`
	Explanation   string     `json:"explanation,omitempty"`
	ImagePath     string     `json:"imagePath,omitempty"`
}

// CheckAnswer reports whether choice is the correct option. A choice may be
// given as an option letter ("B") or as the option text.
func (q Question) CheckAnswer(choice string) bool {
	choice = strings.TrimSpace(choice)
	correct := strings.TrimSpace(q.CorrectOption)
	if choice == "" || correct == "" {
		return false
	}
	if strings.EqualFold(choice, correct) {
		return true
	}
	ci, ok := q.optionIndex(choice)
	if !ok {
		return false
	}
	ki, ok := q.optionIndex(correct)
	return ok && ci == ki
}

// CorrectOptionText returns the text of the correct option when the bank
// stores it as a letter.
func (q Question) CorrectOptionText() string {
	if i, ok := q.optionIndex(q.CorrectOption); ok {
		return q.Options[i]
	}
	return q.CorrectOption
}

func (q Question) optionIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		c := s[0] | 0x20 // ASCII lower
		if c >= 'a' && c <= 'z' {
			i := int(c - 'a')
			if i < len(q.Options) {
				return i, true
			}
		}
	}
	for i, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt), s) {
			return i, true
		}
	}
	return 0, false
}
