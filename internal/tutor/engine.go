// Package tutor answers learner questions about a practice question through
// the AI gateway, keeping per-learner conversation history.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/sat-prep/internal/ai"
	"github.com/p-n-ai/sat-prep/internal/chat"
	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/platform/metrics"
	"github.com/p-n-ai/sat-prep/internal/practice"
)

const (
	defaultCompactThreshold      = 20
	defaultCompactTokenThreshold = 20000 // ~20k tokens triggers compaction
	defaultKeepRecent            = 6
	defaultMaxTokens             = 1024
)

// Replies that do not come from the model.
const (
	FallbackReply = "Sorry, I'm having trouble answering right now. Please try again in a moment."
	BudgetReply   = "You've reached today's tutor limit. Keep practising and come back tomorrow!"
	ResetReply    = "Starting fresh. What would you like to work through?"
	HelpReply     = "Ask me anything about the question you're working on. Send /reset to start a new conversation."
)

// Completer is the part of the AI gateway the tutor needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// QuestionLookup finds practice questions by id.
type QuestionLookup interface {
	Get(id practice.QuestionID) (practice.Question, bool)
}

// EngineConfig holds dependencies for the tutor engine.
type EngineConfig struct {
	AI                    Completer
	Store                 ConversationStore
	Questions             QuestionLookup
	Budget                ai.BudgetChecker
	Events                events.Logger
	Metrics               *metrics.Metrics
	Model                 string // empty uses each provider's default
	MaxTokens             int    // reply token cap (default 1024)
	CompactThreshold      int    // messages before compaction triggers (default 20)
	CompactTokenThreshold int    // estimated tokens before compaction triggers (default 20000)
	KeepRecent            int    // recent messages to keep after compaction (default 6)
}

// Engine is the tutor conversation processor.
type Engine struct {
	ai                    Completer
	store                 ConversationStore
	questions             QuestionLookup
	budget                ai.BudgetChecker
	events                events.Logger
	metrics               *metrics.Metrics
	model                 string
	maxTokens             int
	compactThreshold      int
	compactTokenThreshold int
	keepRecent            int
}

// NewEngine creates a new tutor engine.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		ai:                    cfg.AI,
		store:                 cfg.Store,
		questions:             cfg.Questions,
		budget:                cfg.Budget,
		events:                cfg.Events,
		metrics:               cfg.Metrics,
		model:                 cfg.Model,
		maxTokens:             cfg.MaxTokens,
		compactThreshold:      cfg.CompactThreshold,
		compactTokenThreshold: cfg.CompactTokenThreshold,
		keepRecent:            cfg.KeepRecent,
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	if e.maxTokens == 0 {
		e.maxTokens = defaultMaxTokens
	}
	if e.compactThreshold == 0 {
		e.compactThreshold = defaultCompactThreshold
	}
	if e.compactTokenThreshold == 0 {
		e.compactTokenThreshold = defaultCompactTokenThreshold
	}
	if e.keepRecent == 0 {
		e.keepRecent = defaultKeepRecent
	}
	return e
}

// ProcessMessage handles an incoming message and returns the reply text.
// Failures of the model or the store produce a friendly reply, not an error.
func (e *Engine) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (string, error) {
	if msg.LearnerID == "" {
		return "", fmt.Errorf("learner id is required")
	}
	slog.Info("processing tutor message",
		"channel", msg.Channel,
		"learner_id", msg.LearnerID,
		"question_id", msg.QuestionID,
		"text_len", len(msg.Text),
	)

	if strings.HasPrefix(msg.Text, "/") {
		return e.handleCommand(ctx, msg)
	}

	if e.ai == nil {
		return FallbackReply, nil
	}

	if e.budget != nil {
		if err := e.budget.Check(ctx, msg.LearnerID); err != nil {
			if errors.Is(err, ai.ErrBudgetExceeded) {
				slog.Info("tutor budget exhausted", "learner_id", msg.LearnerID)
				return BudgetReply, nil
			}
			slog.Warn("budget check failed, allowing request", "learner_id", msg.LearnerID, "error", err)
		}
	}

	conv, err := e.conversationFor(ctx, msg)
	if err != nil {
		slog.Error("failed to get conversation", "learner_id", msg.LearnerID, "error", err)
		return FallbackReply, nil
	}

	userContent := msg.Text
	if msg.ReplyToText != "" {
		userContent = fmt.Sprintf("[Replying to: %q]\n\n%s", msg.ReplyToText, msg.Text)
	}
	if err := e.store.AddMessage(ctx, conv.ID, StoredMessage{Role: ai.RoleUser, Content: userContent}); err != nil {
		slog.Error("failed to store user message", "error", err)
	}

	if refreshed, err := e.store.GetConversation(ctx, conv.ID); err == nil {
		conv = refreshed
	}

	e.maybeCompact(ctx, conv)

	messages := []ai.Message{{Role: ai.RoleSystem, Content: e.systemPrompt(conv.QuestionID)}}
	messages = append(messages, buildContextMessages(conv)...)

	resp, err := e.ai.Complete(ctx, ai.CompletionRequest{
		Messages:  messages,
		Model:     e.model,
		Task:      ai.TaskTutoring,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		slog.Error("AI completion failed", "learner_id", msg.LearnerID, "error", err)
		return FallbackReply, nil
	}

	if err := e.store.AddMessage(ctx, conv.ID, StoredMessage{
		Role:         ai.RoleAssistant,
		Content:      resp.Content,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}); err != nil {
		slog.Error("failed to store assistant message", "error", err)
	}
	e.account(ctx, msg.LearnerID, resp)

	events.Log(e.events, events.Event{
		LearnerID: msg.LearnerID,
		EventType: events.TutorMessage,
		Data: map[string]any{
			"conversation_id": conv.ID,
			"question_id":     conv.QuestionID,
			"model":           resp.Model,
			"provider":        resp.Provider,
			"input_tokens":    resp.InputTokens,
			"output_tokens":   resp.OutputTokens,
		},
	})

	return resp.Content, nil
}

func (e *Engine) account(ctx context.Context, learnerID string, resp ai.CompletionResponse) {
	e.metrics.AITokens(resp.Model, resp.InputTokens, resp.OutputTokens)
	if e.budget == nil {
		return
	}
	if err := e.budget.Record(ctx, learnerID, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record token usage", "learner_id", learnerID, "error", err)
	}
}

// conversationFor returns the learner's open conversation. Moving to a
// different question ends it and starts a new one.
func (e *Engine) conversationFor(ctx context.Context, msg chat.InboundMessage) (*Conversation, error) {
	conv, err := e.store.GetActiveConversation(ctx, msg.LearnerID)
	switch {
	case err == nil:
		if msg.QuestionID == "" || msg.QuestionID == conv.QuestionID {
			return conv, nil
		}
		if err := e.store.EndConversation(ctx, conv.ID); err != nil {
			slog.Warn("failed to end conversation", "conversation_id", conv.ID, "error", err)
		}
	case !errors.Is(err, ErrConversationNotFound):
		return nil, err
	}

	id, err := e.store.CreateConversation(ctx, Conversation{
		LearnerID:  msg.LearnerID,
		QuestionID: msg.QuestionID,
	})
	if err != nil {
		return nil, err
	}
	return e.store.GetConversation(ctx, id)
}

// buildContextMessages returns the conversation messages for the AI prompt.
// If a summary exists, it prepends it and only includes messages after the
// compaction point.
func buildContextMessages(conv *Conversation) []ai.Message {
	var messages []ai.Message
	recent := conv.Messages
	if conv.Summary != "" {
		messages = append(messages,
			ai.Message{Role: ai.RoleUser, Content: "Previous conversation summary:\n" + conv.Summary},
			ai.Message{Role: ai.RoleAssistant, Content: "Understood, I'll continue based on our previous conversation."},
		)
		recent = conv.Messages[min(conv.CompactedAt, len(conv.Messages)):]
	}
	for _, m := range recent {
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

// estimateTokens gives a rough token count for messages (1 token ≈ 4 chars).
func estimateTokens(messages []StoredMessage) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}

// maybeCompact summarises older messages once the message count or the
// estimated token count since the last compaction passes its threshold.
func (e *Engine) maybeCompact(ctx context.Context, conv *Conversation) {
	start := min(conv.CompactedAt, len(conv.Messages))
	uncompacted := conv.Messages[start:]
	if len(uncompacted) <= e.compactThreshold && estimateTokens(uncompacted) <= e.compactTokenThreshold {
		return
	}

	compactUpTo := len(conv.Messages) - e.keepRecent
	if compactUpTo <= start {
		return
	}

	var content strings.Builder
	if conv.Summary != "" {
		content.WriteString("Previous summary:\n")
		content.WriteString(conv.Summary)
		content.WriteString("\n\nNew messages to incorporate:\n")
	}
	for _, m := range conv.Messages[start:compactUpTo] {
		role := "Student"
		if m.Role == ai.RoleAssistant {
			role = "Tutor"
		}
		fmt.Fprintf(&content, "%s: %s\n", role, m.Content)
	}

	resp, err := e.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: summaryPrompt},
			{Role: ai.RoleUser, Content: content.String()},
		},
		Task:      ai.TaskSummarize,
		MaxTokens: 256,
	})
	if err != nil {
		slog.Warn("compaction failed, continuing without summary", "error", err)
		return
	}
	e.account(ctx, conv.LearnerID, resp)

	if err := e.store.SetSummary(ctx, conv.ID, resp.Content, compactUpTo); err != nil {
		slog.Warn("failed to save summary", "error", err)
		return
	}

	conv.Summary = resp.Content
	conv.CompactedAt = compactUpTo

	slog.Info("conversation compacted",
		"conversation_id", conv.ID,
		"compacted_messages", compactUpTo,
		"remaining_messages", len(conv.Messages)-compactUpTo,
	)
}

func (e *Engine) handleCommand(ctx context.Context, msg chat.InboundMessage) (string, error) {
	cmd := strings.Fields(msg.Text)[0]

	switch cmd {
	case "/reset", "/start":
		conv, err := e.store.GetActiveConversation(ctx, msg.LearnerID)
		if err == nil {
			if err := e.store.EndConversation(ctx, conv.ID); err != nil {
				slog.Error("failed to end conversation", "error", err)
			}
		}
		return ResetReply, nil
	case "/help":
		return HelpReply, nil
	default:
		return fmt.Sprintf("Unknown command: %s\nSend /help to see what I can do.", cmd), nil
	}
}

// History returns the learner's active conversation.
func (e *Engine) History(ctx context.Context, learnerID string) (*Conversation, error) {
	return e.store.GetActiveConversation(ctx, learnerID)
}
