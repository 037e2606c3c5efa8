package tutor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrConversationNotFound is returned for unknown conversations and when a
// learner has no active one.
var ErrConversationNotFound = errors.New("conversation not found")

// StoredMessage represents a single message in a conversation.
type StoredMessage struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is one learner's chat about a practice question.
type Conversation struct {
	ID          string          `json:"id"`
	LearnerID   string          `json:"learner_id"`
	QuestionID  string          `json:"question_id,omitempty"`
	Messages    []StoredMessage `json:"messages"`
	Summary     string          `json:"summary,omitempty"`
	CompactedAt int             `json:"compacted_at,omitempty"` // number of messages included in Summary
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}

// ConversationStore persists conversation state and message history.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) (string, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// GetActiveConversation returns the learner's latest open conversation
	// or ErrConversationNotFound.
	GetActiveConversation(ctx context.Context, learnerID string) (*Conversation, error)
	AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error
	SetSummary(ctx context.Context, conversationID string, summary string, compactedAt int) error
	EndConversation(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of ConversationStore. Reads
// return copies.
type MemoryStore struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, conv Conversation) (string, error) {
	if conv.LearnerID == "" {
		return "", fmt.Errorf("learner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now()
	}
	conv.Messages = slices.Clone(conv.Messages)
	if conv.Messages == nil {
		conv.Messages = []StoredMessage{}
	}
	s.conversations[conv.ID] = &conv
	return conv.ID, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return conv.clone(), nil
}

func (s *MemoryStore) GetActiveConversation(_ context.Context, learnerID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Conversation
	for _, conv := range s.conversations {
		if conv.LearnerID != learnerID || conv.EndedAt != nil {
			continue
		}
		if latest == nil || conv.StartedAt.After(latest.StartedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, ErrConversationNotFound
	}
	return latest.clone(), nil
}

func (s *MemoryStore) AddMessage(_ context.Context, conversationID string, msg StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func (s *MemoryStore) SetSummary(_ context.Context, conversationID string, summary string, compactedAt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	conv.Summary = summary
	conv.CompactedAt = compactedAt
	return nil
}

func (s *MemoryStore) EndConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	now := time.Now()
	conv.EndedAt = &now
	return nil
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	if c.EndedAt != nil {
		t := *c.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
