package db

import (
	"context"
	"fmt"
)

// Schema statements are idempotent so the server can bootstrap its own
// tables on startup, mirroring first-run behavior in development.
// Production deployments run the same statements via migrations.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		github_id TEXT UNIQUE NOT NULL,
		username TEXT NOT NULL,
		email TEXT,
		avatar_url TEXT,
		access_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS repositories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		full_name TEXT UNIQUE NOT NULL,
		owner TEXT NOT NULL,
		private BOOLEAN NOT NULL DEFAULT false,
		description TEXT NOT NULL DEFAULT '',
		default_branch TEXT NOT NULL DEFAULT 'main',
		url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_repositories (
		user_id TEXT NOT NULL REFERENCES users(id),
		repository_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, repository_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pull_requests (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		branch_name TEXT NOT NULL DEFAULT '',
		base_branch TEXT NOT NULL DEFAULT '',
		repository TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		description TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		data JSONB,
		last_updated TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT 'open',
		repository TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		data JSONB,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id BIGINT PRIMARY KEY,
		event_kind TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		repository TEXT NOT NULL DEFAULT '',
		payload JSONB,
		processed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pull_requests_repository ON pull_requests(repository)`,
	`CREATE INDEX IF NOT EXISTS idx_issues_repository ON issues(repository)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_created_at ON webhook_logs(created_at)`,
}

// InitSchema creates tables and indexes if they do not exist.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}
