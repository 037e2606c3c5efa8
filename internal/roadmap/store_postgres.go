package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. It expects the roadmaps table
// created by the database migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed roadmap store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, learnerID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec Record
	var proficiency []byte
	err := s.pool.QueryRow(ctx,
		`SELECT roadmap, current_level, proficiency, updated_at
		 FROM roadmaps
		 WHERE learner_id = $1`,
		learnerID,
	).Scan(&rec.RoadmapString, &rec.CurrentLevel, &proficiency, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("query roadmap: %w", err)
	}

	if len(proficiency) > 0 {
		if err := json.Unmarshal(proficiency, &rec.Proficiency); err != nil {
			return Record{}, fmt.Errorf("decode proficiency: %w", err)
		}
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, learnerID string, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	proficiency, err := marshalProficiency(rec.Proficiency)
	if err != nil {
		return err
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO roadmaps (learner_id, roadmap, current_level, proficiency, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (learner_id) DO UPDATE
		 SET roadmap = EXCLUDED.roadmap,
		     current_level = EXCLUDED.current_level,
		     proficiency = EXCLUDED.proficiency,
		     updated_at = EXCLUDED.updated_at`,
		learnerID,
		rec.RoadmapString,
		rec.CurrentLevel,
		proficiency,
		updatedAt,
	); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, learnerID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM roadmaps WHERE learner_id = $1`, learnerID); err != nil {
		return fmt.Errorf("delete roadmap: %w", err)
	}
	return nil
}

func marshalProficiency(p map[string]int) (string, error) {
	if p == nil {
		p = map[string]int{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode proficiency: %w", err)
	}
	return string(data), nil
}
