package server

import (
	"net/http"
	"strconv"

	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

const maxQuestions = 200

// questionView hides the answer key from learners.
type questionView struct {
	ID           practice.QuestionID `json:"id"`
	Domain       string              `json:"domain"`
	Skill        string              `json:"skill"`
	Difficulty   string              `json:"difficulty,omitempty"`
	QuestionText string              `json:"questionText"`
	Options      []string            `json:"options"`
	ImagePath    string              `json:"imagePath,omitempty"`
}

func viewQuestions(qs []practice.Question) []questionView {
	out := make([]questionView, len(qs))
	for i, q := range qs {
		out[i] = questionView{
			ID:           q.ID,
			Domain:       q.Domain,
			Skill:        q.Skill,
			Difficulty:   q.Difficulty,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			ImagePath:    q.ImagePath,
		}
	}
	return out
}

type questionsResponse struct {
	Slug      string          `json:"slug,omitempty"`
	Resolved  bool            `json:"resolved"`
	Match     *taxonomy.Match `json:"match,omitempty"`
	Count     int             `json:"count"`
	Questions []questionView  `json:"questions"`
}

// selectBySlug applies the topic filter for slug. An unresolved slug leaves
// the question set unfiltered.
func (s *Server) selectBySlug(slug string) ([]practice.Question, *taxonomy.Match) {
	all := s.bank.All()
	m, ok := s.tax.ResolveSlug(slug)
	if !ok {
		return all, nil
	}
	return s.matcher.Filter(all, s.tax.ExpandToSelection(m)), &m
}

func limitQuestions(qs []practice.Question, limit int) []practice.Question {
	if limit > 0 && limit < len(qs) {
		return qs[:limit]
	}
	return qs
}

func (s *Server) handleTopicQuestions(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxQuestions {
			writeError(w, r, &invalidRequestError{msg: "limit must be between 0 and 200"})
			return
		}
		limit = n
	}

	qs, m := s.selectBySlug(slug)
	qs = limitQuestions(qs, limit)
	s.metrics.QuestionsServed("slug", len(qs))

	writeJSON(w, http.StatusOK, questionsResponse{
		Slug:      slug,
		Resolved:  m != nil,
		Match:     m,
		Count:     len(qs),
		Questions: viewQuestions(qs),
	})
}

type searchRequest struct {
	Selection taxonomy.SelectionMap `json:"selection" validate:"required"`
	Limit     int                   `json:"limit" validate:"gte=0,lte=200"`
}

func (s *Server) handleSearchQuestions(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.validator.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sel := taxonomy.FlattenSelection(req.Selection)
	qs := limitQuestions(s.matcher.Filter(s.bank.All(), sel), req.Limit)
	s.metrics.QuestionsServed("selection", len(qs))

	writeJSON(w, http.StatusOK, questionsResponse{
		Resolved:  !sel.Empty(),
		Count:     len(qs),
		Questions: viewQuestions(qs),
	})
}

type startSessionRequest struct {
	Slug      string                `json:"slug" validate:"omitempty,max=200"`
	Selection taxonomy.SelectionMap `json:"selection"`
	Limit     int                   `json:"limit" validate:"gte=0,lte=200"`
}

type sessionView struct {
	ID        string         `json:"id"`
	Source    string         `json:"source,omitempty"`
	Questions []questionView `json:"questions"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req startSessionRequest
	if err := s.validator.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var qs []practice.Question
	source := "all"
	switch {
	case req.Slug != "":
		qs, _ = s.selectBySlug(req.Slug)
		source = req.Slug
	case len(req.Selection) > 0:
		qs = s.matcher.Filter(s.bank.All(), taxonomy.FlattenSelection(req.Selection))
		source = "selection"
	default:
		qs = s.bank.All()
	}
	qs = limitQuestions(qs, req.Limit)

	sess := s.sessions.Start(learnerID, source, qs)
	s.metrics.QuestionsServed("session", len(qs))

	writeJSON(w, http.StatusCreated, sessionView{
		ID:        sess.ID,
		Source:    sess.Source,
		Questions: viewQuestions(sess.Questions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.sessions.Summary(learnerID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type answerRequest struct {
	QuestionID practice.QuestionID `json:"questionId" validate:"required"`
	Choice     string              `json:"choice" validate:"required,max=500"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req answerRequest
	if err := s.validator.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sessionID := r.PathValue("id")
	res, err := s.sessions.Answer(learnerID, sessionID, req.QuestionID, req.Choice)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.metrics.Answer(res.Correct)
	events.Log(s.events, events.Event{
		LearnerID: learnerID,
		EventType: events.PracticeAnswered,
		Data: map[string]any{
			"session_id":  sessionID,
			"question_id": string(req.QuestionID),
			"correct":     res.Correct,
		},
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sessions.End(learnerID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
