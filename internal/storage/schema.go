package storage

import (
	"context"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ai_providers (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		encrypted_api_key TEXT NOT NULL,
		endpoint TEXT,
		deployment TEXT,
		model TEXT,
		password_hash TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ai_providers_single_active ON ai_providers (is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT,
		content TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS review_audits (
		id UUID PRIMARY KEY,
		provider_id UUID NOT NULL,
		provider_kind VARCHAR(32) NOT NULL,
		prompt_id VARCHAR(64) NOT NULL DEFAULT '',
		file_count INTEGER NOT NULL,
		status VARCHAR(16) NOT NULL,
		error_code VARCHAR(64) NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_audits_created_at ON review_audits (created_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ai_providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		encrypted_api_key TEXT NOT NULL,
		endpoint TEXT,
		deployment TEXT,
		model TEXT,
		password_hash TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ai_providers_single_active ON ai_providers (is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		content TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS review_audits (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		provider_kind TEXT NOT NULL,
		prompt_id TEXT NOT NULL DEFAULT '',
		file_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_audits_created_at ON review_audits (created_at DESC)`,
}

// Migrate creates any missing tables. Statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if db.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
