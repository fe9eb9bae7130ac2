package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes handled by the store.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// schemaStatements create the extension and every table. Each is idempotent.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS people (
		id BIGSERIAL PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		personal_summary TEXT NOT NULL,
		technical_skills JSONB NOT NULL,
		certifications JSONB NOT NULL,
		soft_skills JSONB NOT NULL,
		vocal_attributes TEXT,
		task_delegation_recommendations JSONB NOT NULL,
		specialization_task_categories JSONB NOT NULL,
		additional_observations JSONB NOT NULL,
		embedding VECTOR(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		external_id TEXT NOT NULL,
		required_skills JSONB NOT NULL,
		sector TEXT,
		tags JSONB NOT NULL DEFAULT '[]'::jsonb,
		manpower_needed INTEGER NOT NULL CHECK (manpower_needed >= 0),
		roles_required JSONB NOT NULL DEFAULT '[]'::jsonb,
		estimated_time INTEGER NOT NULL CHECK (estimated_time >= 0),
		embedding VECTOR(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_external_id_idx ON tasks (external_id)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id BIGSERIAL PRIMARY KEY,
		external_id TEXT NOT NULL,
		tags JSONB NOT NULL DEFAULT '[]'::jsonb,
		skills JSONB NOT NULL DEFAULT '[]'::jsonb,
		capabilities JSONB NOT NULL DEFAULT '[]'::jsonb,
		core_functionalities JSONB NOT NULL DEFAULT '[]'::jsonb,
		embedding VECTOR(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS agents_external_id_idx ON agents (external_id)`,
	`CREATE TABLE IF NOT EXISTS delegated_tasks (
		task_id BIGINT PRIMARY KEY REFERENCES tasks (id) ON DELETE CASCADE,
		member_ids TEXT[] NOT NULL DEFAULT '{}',
		agent_ids TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Schema creates the tables the repositories read and write.
type Schema struct {
	db *pgxpool.Pool
}

// NewSchema creates a new schema manager.
func NewSchema(db *pgxpool.Pool) *Schema {
	return &Schema{db: db}
}

// Ensure runs every DDL statement in order. It is safe to call repeatedly.
func (s *Schema) Ensure(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// IsUndefinedTable reports whether err was caused by a missing table.
func IsUndefinedTable(err error) bool {
	return hasSQLState(err, pgUndefinedTable)
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, pgUniqueViolation)
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == code
}
