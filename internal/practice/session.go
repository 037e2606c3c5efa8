package practice

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown sessions and for sessions
	// owned by another learner.
	ErrSessionNotFound = errors.New("practice session not found")
	// ErrQuestionNotInSession is returned when answering a question the
	// session does not contain.
	ErrQuestionNotInSession = errors.New("question is not part of this session")
)

// Session is one learner's pass over a filtered question set.
type Session struct {
	ID        string                `json:"id"`
	LearnerID string                `json:"learner_id"`
	Source    string                `json:"source,omitempty"`
	Questions []Question            `json:"questions"`
	Answers   map[QuestionID]Answer `json:"answers"`
	StartedAt time.Time             `json:"started_at"`

	lastActive time.Time
}

// Answer is a recorded attempt.
type Answer struct {
	Choice     string    `json:"choice"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AnswerResult is returned after answering a question.
type AnswerResult struct {
	QuestionID    QuestionID `json:"question_id"`
	Correct       bool       `json:"correct"`
	CorrectOption string     `json:"correct_option"`
	Explanation   string     `json:"explanation,omitempty"`
}

// SkillStat aggregates answers for one question skill label.
type SkillStat struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

// Summary is the scoring state of a session.
type Summary struct {
	SessionID string               `json:"session_id"`
	Total     int                  `json:"total"`
	Answered  int                  `json:"answered"`
	Correct   int                  `json:"correct"`
	Accuracy  float64              `json:"accuracy"`
	BySkill   map[string]SkillStat `json:"by_skill"`
}

// Session store defaults.
const (
	DefaultSessionTTL   = 2 * time.Hour
	DefaultSessionLimit = 20
)

// SessionStore keeps practice sessions in memory. A session expires after
// sitting idle for the store's TTL, and each learner holds at most limit
// open sessions.
type SessionStore struct {
	sessions map[string]*Session
	ttl      time.Duration
	limit    int
	now      func() time.Time
	mu       sync.RWMutex
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithSessionTTL sets the idle lifetime of a session. Zero or less keeps
// the default.
func WithSessionTTL(d time.Duration) SessionOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSessionLimit caps open sessions per learner. Starting one more
// drops the learner's least recently used session.
func WithSessionLimit(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSessionClock replaces time.Now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates an empty session store.
func NewSessionStore(opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      DefaultSessionTTL,
		limit:    DefaultSessionLimit,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a session over questions for learnerID.
func (s *SessionStore) Start(learnerID, source string, questions []Question) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.evictLocked(learnerID)

	sess := &Session{
		ID:         uuid.NewString(),
		LearnerID:  learnerID,
		Source:     source,
		Questions:  append([]Question(nil), questions...),
		Answers:    make(map[QuestionID]Answer),
		StartedAt:  now,
		lastActive: now,
	}
	s.sessions[sess.ID] = sess
	return sess.snapshot()
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Len returns the number of sessions held, expired ones included until
// the next sweep.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// evictLocked makes room for one more session for learnerID.
func (s *SessionStore) evictLocked(learnerID string) {
	var owned []*Session
	for _, sess := range s.sessions {
		if sess.LearnerID == learnerID {
			owned = append(owned, sess)
		}
	}
	if len(owned) < s.limit {
		return
	}
	slices.SortFunc(owned, func(a, b *Session) int {
		return a.lastActive.Compare(b.lastActive)
	})
	for _, sess := range owned[:len(owned)-s.limit+1] {
		delete(s.sessions, sess.ID)
	}
}

func (s *SessionStore) expired(sess *Session, now time.Time) bool {
	return now.Sub(sess.lastActive) >= s.ttl
}

// Get returns a copy of a session owned by learnerID.
func (s *SessionStore) Get(learnerID, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(learnerID, id)
	if err != nil {
		return Session{}, err
	}
	return sess.snapshot(), nil
}

// Answer records choice for a question. Answering again replaces the
// earlier attempt.
func (s *SessionStore) Answer(learnerID, id string, questionID QuestionID, choice string) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(learnerID, id)
	if err != nil {
		return AnswerResult{}, err
	}

	for _, q := range sess.Questions {
		if q.ID != questionID {
			continue
		}
		correct := q.CheckAnswer(choice)
		now := s.now()
		sess.Answers[questionID] = Answer{
			Choice:     choice,
			Correct:    correct,
			AnsweredAt: now,
		}
		sess.lastActive = now
		return AnswerResult{
			QuestionID:    questionID,
			Correct:       correct,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		}, nil
	}
	return AnswerResult{}, ErrQuestionNotInSession
}

// Summary scores a session.
func (s *SessionStore) Summary(learnerID, id string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookup(learnerID, id)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		SessionID: sess.ID,
		Total:     len(sess.Questions),
		BySkill:   make(map[string]SkillStat),
	}
	for _, q := range sess.Questions {
		a, ok := sess.Answers[q.ID]
		if !ok {
			continue
		}
		stat := sum.BySkill[q.Skill]
		stat.Answered++
		sum.Answered++
		if a.Correct {
			stat.Correct++
			sum.Correct++
		}
		sum.BySkill[q.Skill] = stat
	}
	if sum.Answered > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Answered)
	}
	return sum, nil
}

// End discards a session.
func (s *SessionStore) End(learnerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(learnerID, id); err != nil {
		return err
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) lookup(learnerID, id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok || sess.LearnerID != learnerID || s.expired(sess, s.now()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (sess *Session) snapshot() Session {
	cp := *sess
	cp.Questions = append([]Question(nil), sess.Questions...)
	cp.Answers = make(map[QuestionID]Answer, len(sess.Answers))
	for k, v := range sess.Answers {
		cp.Answers[k] = v
	}
	return cp
}
