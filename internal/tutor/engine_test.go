package tutor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/p-n-ai/sat-prep/internal/ai"
	"github.com/p-n-ai/sat-prep/internal/chat"
	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/tutor"
)

func inbound(text string) chat.InboundMessage {
	return chat.InboundMessage{Channel: chat.ChannelWebSocket, LearnerID: "learner-1", Text: text}
}

func TestEngine_ProcessMessage(t *testing.T) {
	mockAI := ai.NewMockProvider("Slope is rise over run.")
	logger := events.NewMemory()

	engine := tutor.NewEngine(tutor.EngineConfig{AI: mockAI, Events: logger})

	resp, err := engine.ProcessMessage(context.Background(), inbound("What is slope?"))
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if resp != "Slope is rise over run." {
		t.Errorf("reply = %q", resp)
	}
	if req := mockAI.LastRequest(); req == nil || req.Task != ai.TaskTutoring {
		t.Errorf("LastRequest() = %+v, want a tutoring request", req)
	}
	if got := logger.OfType(events.TutorMessage); len(got) != 1 || got[0].LearnerID != "learner-1" {
		t.Errorf("tutor events = %+v", got)
	}
}

func TestEngine_RequiresLearner(t *testing.T) {
	engine := tutor.NewEngine(tutor.EngineConfig{AI: ai.NewMockProvider("x")})
	if _, err := engine.ProcessMessage(context.Background(), chat.InboundMessage{Text: "hi"}); err == nil {
		t.Error("ProcessMessage() without learner should fail")
	}
}

func TestEngine_Commands(t *testing.T) {
	engine := tutor.NewEngine(tutor.EngineConfig{AI: ai.NewMockProvider("")})

	tests := []struct {
		text string
		want string
	}{
		{"/reset", tutor.ResetReply},
		{"/start", tutor.ResetReply},
		{"/help", tutor.HelpReply},
		{"/unknown now", "Unknown command: /unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			resp, err := engine.ProcessMessage(context.Background(), inbound(tt.text))
			if err != nil {
				t.Fatalf("ProcessMessage() error = %v", err)
			}
			if !strings.HasPrefix(resp, tt.want) {
				t.Errorf("reply = %q, want prefix %q", resp, tt.want)
			}
		})
	}
}

func TestEngine_AIErrorFallsBack(t *testing.T) {
	engine := tutor.NewEngine(tutor.EngineConfig{AI: &ai.MockProvider{Err: context.DeadlineExceeded}})

	resp, err := engine.ProcessMessage(context.Background(), inbound("What is x+1?"))
	if err != nil {
		t.Fatalf("ProcessMessage() should not return error on AI failure, got: %v", err)
	}
	if resp != tutor.FallbackReply {
		t.Errorf("reply = %q, want fallback", resp)
	}
}

func TestEngine_NoProviderFallsBack(t *testing.T) {
	engine := tutor.NewEngine(tutor.EngineConfig{})
	resp, err := engine.ProcessMessage(context.Background(), inbound("hello"))
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if resp != tutor.FallbackReply {
		t.Errorf("reply = %q, want fallback", resp)
	}
}

func TestEngine_ConversationHistory(t *testing.T) {
	mockAI := ai.NewMockProvider("")
	engine := tutor.NewEngine(tutor.EngineConfig{AI: mockAI})
	ctx := context.Background()

	mockAI.Response = "Response 1"
	engine.ProcessMessage(ctx, inbound("What is x?"))
	mockAI.Response = "Response 2"
	engine.ProcessMessage(ctx, inbound("What about y?"))

	msgs := mockAI.LastRequest().Messages
	want := []ai.Message{
		{Role: ai.RoleUser, Content: "What is x?"},
		{Role: ai.RoleAssistant, Content: "Response 1"},
		{Role: ai.RoleUser, Content: "What about y?"},
	}
	if len(msgs) != len(want)+1 {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want)+1)
	}
	if msgs[0].Role != ai.RoleSystem {
		t.Errorf("msgs[0].Role = %q, want system", msgs[0].Role)
	}
	for i, w := range want {
		if msgs[i+1] != w {
			t.Errorf("msgs[%d] = %+v, want %+v", i+1, msgs[i+1], w)
		}
	}

	conv, err := engine.History(ctx, "learner-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(conv.Messages) != 4 {
		t.Errorf("stored %d messages, want 4", len(conv.Messages))
	}
}

func TestEngine_ResetClearsHistory(t *testing.T) {
	mockAI := ai.NewMockProvider("Response")
	engine := tutor.NewEngine(tutor.EngineConfig{AI: mockAI})
	ctx := context.Background()

	engine.ProcessMessage(ctx, inbound("Hello"))
	engine.ProcessMessage(ctx, inbound("/reset"))
	engine.ProcessMessage(ctx, inbound("Fresh start"))

	if n := len(mockAI.LastRequest().Messages); n != 2 {
		t.Errorf("expected 2 messages after /reset, got %d", n)
	}
}

func TestEngine_QuestionAwarePrompt(t *testing.T) {
	bank := practice.NewBank([]practice.Question{{
		ID:            "q-1",
		Domain:        "Algebra",
		Skill:         "Linear functions",
		QuestionText:  "What is the slope of y = 3x + 2?",
		Options:       []string{"2", "3", "5", "6"},
		CorrectOption: "B",
		Explanation:   "The coefficient of x is the slope.",
	}})
	mockAI := ai.NewMockProvider("Look at the coefficient of x.")
	engine := tutor.NewEngine(tutor.EngineConfig{AI: mockAI, Questions: bank})
	ctx := context.Background()

	msg := inbound("I'm stuck")
	msg.QuestionID = "q-1"
	if _, err := engine.ProcessMessage(ctx, msg); err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}

	system := mockAI.LastRequest().Messages[0].Content
	for _, want := range []string{"What is the slope of y = 3x + 2?", "B) 3", "Correct answer: B", "coefficient of x"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	// Moving to another question starts a new conversation.
	msg.QuestionID = "q-2"
	msg.Text = "next one"
	engine.ProcessMessage(ctx, msg)
	if n := len(mockAI.LastRequest().Messages); n != 2 {
		t.Errorf("expected 2 messages for a new question, got %d", n)
	}
	conv, err := engine.History(ctx, "learner-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if conv.QuestionID != "q-2" {
		t.Errorf("QuestionID = %q, want q-2", conv.QuestionID)
	}
}

func TestEngine_BudgetExceeded(t *testing.T) {
	mockAI := ai.NewMockProvider("an answer")
	budget := ai.NewInMemoryBudget(10)
	engine := tutor.NewEngine(tutor.EngineConfig{AI: mockAI, Budget: budget})
	ctx := context.Background()

	if resp, _ := engine.ProcessMessage(ctx, inbound("first")); resp != "an answer" {
		t.Fatalf("first reply = %q", resp)
	}
	used, _, _ := budget.Usage(ctx, "learner-1")
	if used != int64(10+len("an answer")) {
		t.Errorf("used = %d, want %d", used, 10+len("an answer"))
	}

	resp, err := engine.ProcessMessage(ctx, inbound("second"))
	if err != nil {
		t.Fatalf("ProcessMessage() error = %v", err)
	}
	if resp != tutor.BudgetReply {
		t.Errorf("reply = %q, want budget reply", resp)
	}
	if mockAI.Calls() != 1 {
		t.Errorf("provider called %d times, want 1", mockAI.Calls())
	}
}

func TestEngine_Compaction(t *testing.T) {
	mockAI := ai.NewMockProvider("ok")
	store := tutor.NewMemoryStore()
	engine := tutor.NewEngine(tutor.EngineConfig{
		AI:               mockAI,
		Store:            store,
		CompactThreshold: 4,
		KeepRecent:       2,
	})
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		if _, err := engine.ProcessMessage(ctx, inbound(text)); err != nil {
			t.Fatalf("ProcessMessage() error = %v", err)
		}
	}

	conv, err := store.GetActiveConversation(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GetActiveConversation() error = %v", err)
	}
	if conv.Summary != "ok" || conv.CompactedAt != 3 {
		t.Errorf("summary = %q compacted_at = %d, want ok/3", conv.Summary, conv.CompactedAt)
	}

	msgs := mockAI.LastRequest().Messages
	// system + summary + ack + assistant("ok") + user("three")
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	if !strings.HasPrefix(msgs[1].Content, "Previous conversation summary:") {
		t.Errorf("msgs[1] = %q, want summary", msgs[1].Content)
	}
	if msgs[4].Content != "three" {
		t.Errorf("last message = %q, want three", msgs[4].Content)
	}
}
