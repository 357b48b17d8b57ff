package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables the service needs. The DDL is valid for
// both Postgres and SQLite and safe to run on every start.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS survey_responses (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		role TEXT,
		seniority TEXT,
		company_size TEXT,
		company_type TEXT,
		industry TEXT,
		product_type TEXT,
		customer_segment TEXT,
		daily_tools TEXT NOT NULL DEFAULT '[]',
		learning_methods TEXT NOT NULL DEFAULT '[]',
		main_challenge TEXT,
		email TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_survey_responses_created_at ON survey_responses(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_survey_responses_role ON survey_responses(role)`,
	`CREATE TABLE IF NOT EXISTS survey_questions (
		id TEXT PRIMARY KEY,
		step INTEGER NOT NULL,
		field_key TEXT NOT NULL,
		label TEXT NOT NULL,
		kind TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		position INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_survey_questions_step ON survey_questions(step, position)`,
	`CREATE TABLE IF NOT EXISTS survey_settings (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}
