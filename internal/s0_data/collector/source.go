package collector

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrRunNotFound is returned when the collection stage has no such run
var ErrRunNotFound = errors.New("collection run not found")

// PlatformBatch is one platform's raw records within a collection run
type PlatformBatch struct {
	Name    string            `json:"name"`
	Mode    string            `json:"mode,omitempty"`
	Records []json.RawMessage `json:"records"`
}

// CollectionRun is one collection run as handed over by the collection stage
type CollectionRun struct {
	RunID     string          `json:"runId"`
	CreatedAt time.Time       `json:"createdAt"`
	Platforms []PlatformBatch `json:"platforms"`
}

// RecordCount returns the number of raw records across all platforms
func (r *CollectionRun) RecordCount() int {
	n := 0
	for _, p := range r.Platforms {
		n += len(p.Records)
	}
	return n
}

// Source supplies collection runs waiting for the quality gate
// ⭐ SSOT: 수집 단계 → 품질 게이트 입력 경계
type Source interface {
	// PendingRuns returns up to limit run ids not yet gated, oldest first
	PendingRuns(ctx context.Context, limit int) ([]string, error)
	// LoadRun returns the raw records of a run, platforms in collection order
	LoadRun(ctx context.Context, runID string) (*CollectionRun, error)
	// MarkGated records that the run's summary has been produced
	MarkGated(ctx context.Context, runID string) error
}
