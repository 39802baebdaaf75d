package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists validation reports
// ⭐ SSOT: 검증 리포트 저장/정리
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveReports stores one row per batch result
func (r *Repository) SaveReports(ctx context.Context, runID, platform string, results []BatchResult) error {
	if len(results) == 0 {
		return nil
	}

	query := `
		INSERT INTO quality.validation_reports (
			run_id, platform, record_index, external_id,
			valid, error_count, warn_count, blocking_count,
			issues, fault
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id, platform, record_index) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			valid = EXCLUDED.valid,
			error_count = EXCLUDED.error_count,
			warn_count = EXCLUDED.warn_count,
			blocking_count = EXCLUDED.blocking_count,
			issues = EXCLUDED.issues,
			fault = EXCLUDED.fault,
			created_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, res := range results {
		var (
			valid                   bool
			errCount, warnCount, bc int
			issues                  = "[]"
			fault                   *string
		)

		if res.Report != nil {
			valid = res.Report.Valid
			errCount = res.Report.Counts.Error
			warnCount = res.Report.Counts.Warn
			bc = res.Report.Blocking

			data, err := json.Marshal(res.Report.Issues)
			if err != nil {
				return fmt.Errorf("marshal issues for record %d: %w", res.Index, err)
			}
			issues = string(data)
		}
		if res.Err != nil {
			msg := res.Err.Error()
			fault = &msg
		}

		batch.Queue(query,
			runID, platform, res.Index, res.Sample.ExternalID,
			valid, errCount, warnCount, bc,
			issues, fault,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save validation report: %w", err)
		}
	}

	return nil
}

// DeleteBefore removes reports created before cutoff and returns the row count
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quality.validation_reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete validation reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
