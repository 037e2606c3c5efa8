// Package events records learner analytics events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types.
const (
	RoadmapGenerated = "roadmap_generated"
	RoadmapProgress  = "roadmap_progress"
	RoadmapDeleted   = "roadmap_deleted"
	PracticeAnswered = "practice_answered"
	TutorMessage     = "tutor_message"
)

// Event is one analytics record.
type Event struct {
	LearnerID string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// Logger defines event logging behavior.
type Logger interface {
	LogEvent(event Event) error
}

// Nop ignores all events.
type Nop struct{}

func (Nop) LogEvent(Event) error {
	return nil
}

// Memory stores events in memory for tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{
		events: []Event{},
	}
}

func (l *Memory) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *Memory) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// OfType returns the recorded events with the given type.
func (l *Memory) OfType(eventType string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, e := range l.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Postgres inserts events into the events table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (l *Postgres) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO events (learner_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.LearnerID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"learner_id", event.LearnerID,
	)
	return nil
}

// Log records event on logger and only warns on failure. Analytics never
// fail the operation that produced them.
func Log(logger Logger, event Event) {
	if logger == nil {
		return
	}
	if err := logger.LogEvent(event); err != nil {
		slog.Warn("failed to log event", "type", event.EventType, "learner_id", event.LearnerID, "error", err)
	}
}
