package roadmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore is a Store for single-node deployments. It expects the schema
// applied by platform/sqlite.Open.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed roadmap store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, learnerID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var rec Record
	var proficiency, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT roadmap, current_level, proficiency, updated_at
		 FROM roadmaps WHERE learner_id = ?`,
		learnerID,
	).Scan(&rec.RoadmapString, &rec.CurrentLevel, &proficiency, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("query roadmap: %w", err)
	}

	if proficiency != "" {
		if err := json.Unmarshal([]byte(proficiency), &rec.Proficiency); err != nil {
			return Record{}, fmt.Errorf("decode proficiency: %w", err)
		}
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Record{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, learnerID string, rec Record) error {
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

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO roadmaps (learner_id, roadmap, current_level, proficiency, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (learner_id) DO UPDATE
		 SET roadmap = excluded.roadmap,
		     current_level = excluded.current_level,
		     proficiency = excluded.proficiency,
		     updated_at = excluded.updated_at`,
		learnerID,
		rec.RoadmapString,
		rec.CurrentLevel,
		proficiency,
		updatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, learnerID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM roadmaps WHERE learner_id = ?`, learnerID); err != nil {
		return fmt.Errorf("delete roadmap: %w", err)
	}
	return nil
}
