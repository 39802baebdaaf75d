package contract

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/homescan/pkg/logger"
)

func TestRepository_SaveReports(t *testing.T) {
	// Skip if DATABASE_URL is not set
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewRepository(pool)
	runID := "contract-test-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM quality.validation_reports WHERE run_id = $1`, runID)
	})

	records := append(batchRecords(t, 2), json.RawMessage(`{"broken"`))
	results := NewValidator(logger.Nop(), 2).ValidateBatch(ctx, records)
	require.NoError(t, repo.SaveReports(ctx, runID, "naver", results))

	// 재저장은 같은 키를 덮어씀
	require.NoError(t, repo.SaveReports(ctx, runID, "naver", results))

	var rows, faults int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(fault) FROM quality.validation_reports WHERE run_id = $1
	`, runID).Scan(&rows, &faults)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, faults)

	assert.NoError(t, repo.SaveReports(ctx, runID, "naver", nil))
}

func TestRepository_DeleteBefore(t *testing.T) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewRepository(pool)
	runID := "contract-retention-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM quality.validation_reports WHERE run_id = $1`, runID)
	})

	results := NewValidator(logger.Nop(), 1).ValidateBatch(ctx, batchRecords(t, 1))
	require.NoError(t, repo.SaveReports(ctx, runID, "zigbang", results))

	_, err = pool.Exec(ctx, `
		UPDATE quality.validation_reports SET created_at = NOW() - INTERVAL '40 days' WHERE run_id = $1
	`, runID)
	require.NoError(t, err)

	n, err := repo.DeleteBefore(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	var left int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM quality.validation_reports WHERE run_id = $1`, runID).Scan(&left))
	assert.Zero(t, left)
}
