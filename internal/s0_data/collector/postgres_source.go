package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads runs staged by the collection stage in collection.*
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a new Postgres-backed source
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// PendingRuns implements Source
func (s *PostgresSource) PendingRuns(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT run_id
		FROM collection.runs
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending runs: %w", err)
	}

	runs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan pending runs: %w", err)
	}
	return runs, nil
}

// LoadRun implements Source. Platforms keep the order their first record was staged.
func (s *PostgresSource) LoadRun(ctx context.Context, runID string) (*CollectionRun, error) {
	run := &CollectionRun{RunID: runID, Platforms: []PlatformBatch{}}

	err := s.pool.QueryRow(ctx, `SELECT created_at FROM collection.runs WHERE run_id = $1`, runID).Scan(&run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	query := `
		SELECT platform, mode, record
		FROM collection.raw_records
		WHERE run_id = $1
		ORDER BY MIN(created_at) OVER (PARTITION BY platform), platform, record_index
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query raw records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var platform, mode string
		var record []byte
		if err := rows.Scan(&platform, &mode, &record); err != nil {
			return nil, fmt.Errorf("scan raw record: %w", err)
		}

		n := len(run.Platforms)
		if n == 0 || run.Platforms[n-1].Name != platform {
			run.Platforms = append(run.Platforms, PlatformBatch{Name: platform, Mode: mode})
			n++
		}
		run.Platforms[n-1].Records = append(run.Platforms[n-1].Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw records: %w", err)
	}

	return run, nil
}

// MarkGated implements Source
func (s *PostgresSource) MarkGated(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE collection.runs SET status = 'gated', gated_at = NOW() WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("mark run %s gated: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// DeleteBefore removes gated runs (and their raw records) gated before cutoff.
// Pending runs are never removed.
func (s *PostgresSource) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM collection.runs WHERE status = 'gated' AND gated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete gated runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// StageRun stores a run and its raw records as pending. Re-staging replaces
// the previous records of the same run.
func (s *PostgresSource) StageRun(ctx context.Context, run *CollectionRun) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stage run: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO collection.runs (run_id, status) VALUES ($1, 'pending')
		ON CONFLICT (run_id) DO UPDATE SET status = 'pending', gated_at = NULL
	`, run.RunID)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", run.RunID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM collection.raw_records WHERE run_id = $1`, run.RunID); err != nil {
		return fmt.Errorf("clear raw records: %w", err)
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, p := range run.Platforms {
		for i, rec := range p.Records {
			// clock_timestamp()로 플랫폼 적재 순서 보존
			batch.Queue(`
				INSERT INTO collection.raw_records (run_id, platform, mode, record_index, record, created_at)
				VALUES ($1, $2, $3, $4, $5, clock_timestamp())
			`, run.RunID, p.Name, p.Mode, i, string(rec))
			queued++
		}
	}

	if queued > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < queued; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert raw record: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close raw record batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stage run: %w", err)
	}
	return nil
}
