package tutor

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/sat-prep/internal/practice"
)

const basePrompt = `You are a friendly and encouraging SAT tutor helping a student prepare for the digital SAT.

TEACHING STYLE:
- Start with what the student knows, build from there
- Break problems into small steps
- If the student is stuck, give a hint before the answer
- Use mathematical notation where needed
- Keep responses concise; this is a chat, not a textbook

RULES:
- Never give answers without explanation
- Check that the student understood before moving on
- Be patient and never condescending`

const summaryPrompt = `Summarize this tutoring conversation concisely. Capture:
- Topics discussed and key concepts
- What the student understood or struggled with
- Any examples or problems worked through
Keep the summary under 150 words.`

// systemPrompt embeds the practice question when one is known.
func (e *Engine) systemPrompt(questionID string) string {
	if questionID == "" || e.questions == nil {
		return basePrompt
	}
	q, ok := e.questions.Get(practice.QuestionID(questionID))
	if !ok {
		return basePrompt
	}
	return basePrompt + "\n\n" + describeQuestion(q)
}

func describeQuestion(q practice.Question) string {
	var b strings.Builder
	b.WriteString("THE STUDENT IS WORKING ON THIS QUESTION:\n")
	fmt.Fprintf(&b, "Domain: %s\nSkill: %s\n", q.Domain, q.Skill)
	if q.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", q.Difficulty)
	}
	fmt.Fprintf(&b, "\n%s\n\n", q.QuestionText)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
	}
	if q.CorrectOption != "" {
		fmt.Fprintf(&b, "\nCorrect answer: %s\n", q.CorrectOption)
	}
	if q.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n", q.Explanation)
	}
	b.WriteString("\nGuide the student toward the answer. Do not reveal it unless they have tried and ask for it.")
	return b.String()
}
