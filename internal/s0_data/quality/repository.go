package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/pkg/redis"
)

// ErrRunNotFound is returned when no summary exists for a run id
var ErrRunNotFound = errors.New("run summary not found")

// RunOverview is one row of the run listing
type RunOverview struct {
	RunID           string    `json:"runId"`
	GeneratedAt     time.Time `json:"generatedAt"`
	Passed          bool      `json:"passed"`
	TotalSample     int       `json:"totalSample"`
	FailedPlatforms []string  `json:"failedPlatforms"`
}

// Repository handles run summary persistence
// ⭐ SSOT: 실행 요약 저장/조회
type Repository struct {
	pool  *pgxpool.Pool
	cache *redis.Cache
}

// NewRepository creates a new run summary repository. cache may be nil.
func NewRepository(pool *pgxpool.Pool, cache *redis.Cache) *Repository {
	return &Repository{pool: pool, cache: cache}
}

// SaveRunSummary upserts a run summary
func (r *Repository) SaveRunSummary(ctx context.Context, summary *contracts.RunSummary) error {
	query := `
		INSERT INTO quality.run_summaries (
			run_id, generated_at, passed, total_sample, thresholds, summary
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			passed = EXCLUDED.passed,
			total_sample = EXCLUDED.total_sample,
			thresholds = EXCLUDED.thresholds,
			summary = EXCLUDED.summary,
			created_at = NOW()
	`

	thresholds, err := json.Marshal(summary.Thresholds)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		summary.RunID,
		summary.GeneratedAt,
		summary.Passed(),
		summary.TotalSample,
		string(thresholds),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("save run summary: %w", err)
	}

	// 재실행된 run은 캐시 무효화
	r.invalidate(ctx, summary.RunID)

	return nil
}

// invalidate drops the cached summaries of runIDs and every cached run list
func (r *Repository) invalidate(ctx context.Context, runIDs ...string) {
	if r.cache == nil {
		return
	}
	for _, id := range runIDs {
		_ = r.cache.Delete(ctx, redis.RunSummaryKey(id))
	}
	_ = r.cache.DeletePattern(ctx, redis.RunListPattern)
}

// GetRunSummary retrieves a run summary, reading through the cache when set
func (r *Repository) GetRunSummary(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	if r.cache == nil {
		return r.loadRunSummary(ctx, runID)
	}

	var summary contracts.RunSummary
	err := r.cache.GetOrSet(ctx, redis.RunSummaryKey(runID), &summary, redis.TTLMedium, func() (interface{}, error) {
		return r.loadRunSummary(ctx, runID)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *Repository) loadRunSummary(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	query := `SELECT summary FROM quality.run_summaries WHERE run_id = $1`

	var body []byte
	if err := r.pool.QueryRow(ctx, query, runID).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("get run summary: %w", err)
	}

	var summary contracts.RunSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode run summary %s: %w", runID, err)
	}
	return &summary, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunOverview, error) {
	if limit <= 0 {
		limit = 20
	}

	if r.cache == nil {
		return r.queryRuns(ctx, limit)
	}

	var runs []RunOverview
	err := r.cache.GetOrSet(ctx, redis.RunListKey(limit), &runs, redis.TTLShort, func() (interface{}, error) {
		return r.queryRuns(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *Repository) queryRuns(ctx context.Context, limit int) ([]RunOverview, error) {
	query := `
		SELECT run_id, generated_at, passed, total_sample,
			COALESCE(ARRAY(
				SELECT p->>'platform'
				FROM jsonb_array_elements(summary->'platforms') AS p
				WHERE NOT (p->>'pass')::boolean
			), '{}')
		FROM quality.run_summaries
		ORDER BY generated_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunOverview{}
	for rows.Next() {
		var run RunOverview
		if err := rows.Scan(&run.RunID, &run.GeneratedAt, &run.Passed, &run.TotalSample, &run.FailedPlatforms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// DeleteBefore removes summaries generated before cutoff and evicts them from the cache
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM quality.run_summaries WHERE generated_at < $1 RETURNING run_id`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete run summaries: %w", err)
	}
	runIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("delete run summaries: %w", err)
	}

	if len(runIDs) > 0 {
		r.invalidate(ctx, runIDs...)
	}
	return int64(len(runIDs)), nil
}
