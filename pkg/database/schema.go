package database

import (
	"context"
	"fmt"
)

// schemaStatements create the collection and quality tables.
// Every statement must be safe to re-run.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS collection`,
	`CREATE SCHEMA IF NOT EXISTS quality`,

	// 수집 단계가 적재하는 실행 단위
	`CREATE TABLE IF NOT EXISTS collection.runs (
		run_id     TEXT PRIMARY KEY,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		gated_at   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS collection.raw_records (
		run_id       TEXT NOT NULL REFERENCES collection.runs(run_id) ON DELETE CASCADE,
		platform     TEXT NOT NULL,
		mode         TEXT NOT NULL DEFAULT '',
		record_index INT NOT NULL,
		record       JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, platform, record_index)
	)`,

	`CREATE TABLE IF NOT EXISTS quality.validation_reports (
		run_id         TEXT NOT NULL,
		platform       TEXT NOT NULL,
		record_index   INT NOT NULL,
		external_id    TEXT NOT NULL DEFAULT '',
		valid          BOOLEAN NOT NULL,
		error_count    INT NOT NULL,
		warn_count     INT NOT NULL,
		blocking_count INT NOT NULL,
		issues         JSONB NOT NULL DEFAULT '[]',
		fault          TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (run_id, platform, record_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_validation_reports_created_at
		ON quality.validation_reports (created_at)`,

	`CREATE TABLE IF NOT EXISTS quality.run_summaries (
		run_id       TEXT PRIMARY KEY,
		generated_at TIMESTAMPTZ NOT NULL,
		passed       BOOLEAN NOT NULL,
		total_sample INT NOT NULL,
		thresholds   JSONB NOT NULL,
		summary      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_summaries_generated_at
		ON quality.run_summaries (generated_at DESC)`,
}

// EnsureSchema creates the tables used by the collection and quality stages
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
