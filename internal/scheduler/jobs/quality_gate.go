package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/internal/s0_data/collector"
	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/logger"
)

// ReportStore persists per-record validation reports
type ReportStore interface {
	SaveReports(ctx context.Context, runID, platform string, results []contract.BatchResult) error
}

// SummaryStore persists run summaries
type SummaryStore interface {
	SaveRunSummary(ctx context.Context, summary *contracts.RunSummary) error
}

// Publisher announces finished run summaries
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// 한 번의 실행에서 처리하는 최대 런 수
const defaultRunBatch = 20

// QualityGateJob gates collection runs waiting in the collection stage
// ⭐ SSOT: 수집 런 → 검증 → 게이트 → 저장/발행 흐름은 이 Job에서만
type QualityGateJob struct {
	source     collector.Source
	validator  *contract.Validator
	builder    *quality.Builder
	reports    ReportStore
	summaries  SummaryStore
	publisher  Publisher
	thresholds contracts.QualityThresholds
	schedule   string
	runBatch   int
	logger     *logger.Logger
}

// QualityGateDeps groups the job's collaborators. Reports and Publisher are optional.
type QualityGateDeps struct {
	Source     collector.Source
	Validator  *contract.Validator
	Builder    *quality.Builder
	Reports    ReportStore
	Summaries  SummaryStore
	Publisher  Publisher
	Thresholds contracts.QualityThresholds
}

// NewQualityGateJob creates a new quality gate job
func NewQualityGateJob(deps QualityGateDeps, schedule string, log *logger.Logger) *QualityGateJob {
	return &QualityGateJob{
		source:     deps.Source,
		validator:  deps.Validator,
		builder:    deps.Builder,
		reports:    deps.Reports,
		summaries:  deps.Summaries,
		publisher:  deps.Publisher,
		thresholds: deps.Thresholds,
		schedule:   schedule,
		runBatch:   defaultRunBatch,
		logger:     log.WithField("job", "quality_gate"),
	}
}

// Name returns the job name
func (j *QualityGateJob) Name() string {
	return "quality_gate"
}

// Schedule returns the cron schedule
func (j *QualityGateJob) Schedule() string {
	return j.schedule
}

// Run gates every pending run. A failing run does not stop the others.
func (j *QualityGateJob) Run(ctx context.Context) error {
	runIDs, err := j.source.PendingRuns(ctx, j.runBatch)
	if err != nil {
		return fmt.Errorf("list pending runs: %w", err)
	}
	if len(runIDs) == 0 {
		j.logger.Debug("No pending collection runs")
		return nil
	}

	j.logger.WithField("runs", len(runIDs)).Info("Gating pending collection runs")

	var errs []error
	for _, runID := range runIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := j.GateRun(ctx, runID); err != nil {
			j.logger.WithError(err).WithField("run_id", runID).Error("Run gating failed")
			errs = append(errs, fmt.Errorf("run %s: %w", runID, err))
		}
	}

	return errors.Join(errs...)
}

// GateRun validates, gates, persists, and publishes a single run.
// The run is marked gated only after its summary is stored.
func (j *QualityGateJob) GateRun(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	run, err := j.source.LoadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	log := j.logger.WithFields(map[string]interface{}{
		"run_id":  run.RunID,
		"records": run.RecordCount(),
	})

	platforms := make([]contracts.PlatformCollection, 0, len(run.Platforms))
	for _, batch := range run.Platforms {
		collection, results := j.validator.EvaluatePlatform(ctx, batch.Name, batch.Mode, batch.Records)
		platforms = append(platforms, collection)

		if j.reports == nil {
			continue
		}
		if err := j.reports.SaveReports(ctx, run.RunID, batch.Name, results); err != nil {
			// 리포트 저장 실패는 해당 플랫폼만 기록하고 계속
			log.WithError(err).WithField("platform", batch.Name).Warn("Failed to save validation reports")
		}
	}

	// 취소된 런은 PENDING 샘플이 섞이므로 확정하지 않음
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := j.builder.Build(run.RunID, j.thresholds, platforms)

	if err := j.summaries.SaveRunSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("save run summary: %w", err)
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, summary); err != nil {
			log.WithError(err).Warn("Failed to publish run summary")
		}
	}

	if err := j.source.MarkGated(ctx, run.RunID); err != nil {
		return nil, fmt.Errorf("mark gated: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"passed":           summary.Passed(),
		"failed_platforms": summary.FailedPlatforms(),
	}).Info("Collection run gated")

	return summary, nil
}
