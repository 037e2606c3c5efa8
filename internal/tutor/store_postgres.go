package tutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed ConversationStore implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed conversation store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, conv Conversation) (string, error) {
	if conv.LearnerID == "" {
		return "", fmt.Errorf("learner_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	startedAt := conv.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO tutor_conversations (id, learner_id, question_id, started_at)
		 VALUES ($1::uuid, $2, $3, $4)`,
		id,
		conv.LearnerID,
		nullIfEmpty(conv.QuestionID),
		startedAt,
	); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	for _, msg := range conv.Messages {
		if err := s.AddMessage(ctx, id, msg); err != nil {
			return "", fmt.Errorf("save initial messages: %w", err)
		}
	}
	return id, nil
}

const conversationColumns = `id::text, learner_id, COALESCE(question_id, ''), summary, compacted_at, started_at, ended_at`

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv, err := s.scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM tutor_conversations WHERE id = $1::uuid`,
		id,
	))
	if err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *PostgresStore) GetActiveConversation(ctx context.Context, learnerID string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv, err := s.scanConversation(s.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+`
		 FROM tutor_conversations
		 WHERE learner_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		learnerID,
	))
	if err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *PostgresStore) scanConversation(row pgx.Row) (*Conversation, error) {
	var conv Conversation
	if err := row.Scan(
		&conv.ID,
		&conv.LearnerID,
		&conv.QuestionID,
		&conv.Summary,
		&conv.CompactedAt,
		&conv.StartedAt,
		&conv.EndedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	conv.Messages = []StoredMessage{}
	return &conv, nil
}

func (s *PostgresStore) loadMessages(ctx context.Context, conv *Conversation) error {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, model, input_tokens, output_tokens, created_at
		 FROM tutor_messages
		 WHERE conversation_id = $1::uuid
		 ORDER BY id ASC`,
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg StoredMessage
		var model *string
		var inputTokens, outputTokens *int
		if err := rows.Scan(&msg.Role, &msg.Content, &model, &inputTokens, &outputTokens, &msg.CreatedAt); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}
		if model != nil {
			msg.Model = *model
		}
		if inputTokens != nil {
			msg.InputTokens = *inputTokens
		}
		if outputTokens != nil {
			msg.OutputTokens = *outputTokens
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate messages: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error {
	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO tutor_messages (conversation_id, role, content, model, input_tokens, output_tokens, created_at)
		 SELECT c.id, $2, $3, $4, $5, $6, $7
		 FROM tutor_conversations c
		 WHERE c.id = $1::uuid`,
		conversationID,
		msg.Role,
		msg.Content,
		nullIfEmpty(msg.Model),
		nullIfZero(msg.InputTokens),
		nullIfZero(msg.OutputTokens),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return nil
}

func (s *PostgresStore) SetSummary(ctx context.Context, conversationID string, summary string, compactedAt int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE tutor_conversations SET summary = $2, compacted_at = $3 WHERE id = $1::uuid`,
		conversationID,
		summary,
		compactedAt,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return nil
}

func (s *PostgresStore) EndConversation(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE tutor_conversations SET ended_at = NOW() WHERE id = $1::uuid AND ended_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
