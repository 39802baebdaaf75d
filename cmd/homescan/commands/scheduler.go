package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/homescan/internal/s0_data/contract"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/internal/scheduler"
	"github.com/wonny/homescan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `품질 게이트 스케줄러를 시작하거나 작업을 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/homescan scheduler start
  go run ./cmd/homescan scheduler list
  go run ./cmd/homescan scheduler run quality_gate`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- quality_gate: GATE_SCHEDULE (기본 10분마다) 대기 중인 수집 런 검증/판정
- retention:    RETENTION_SCHEDULE (기본 매일 04:30) 보관 기간이 지난 리포트 삭제

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	fmt.Fprintln(out, "Registered jobs:")
	PrintList(out, sched.GetAllJobs())
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	widths := []int{14, 16}
	PrintTableHeader(out, []string{"JOB", "SCHEDULE"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintTableRow(out, []string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(appOptions{requireDB: true})
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 수동 실행은 재시도하지 않음
	result, err := sched.WithRetry(0, 0).RunJobNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	out := cmd.OutOrStdout()
	if !result.Success {
		PrintError(out, fmt.Sprintf("%s failed after %s: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(out, fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}

// initScheduler wires the quality gate and retention jobs
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}

	reports := contract.NewRepository(a.db.Pool)
	runs := a.runRepository()

	deps := jobs.QualityGateDeps{
		Source:     src,
		Validator:  contract.NewValidator(a.log, a.cfg.Gate.Workers),
		Builder:    quality.NewBuilder(a.log),
		Reports:    reports,
		Summaries:  runs,
		Thresholds: a.thresholds.Thresholds,
	}
	if p := a.publisher(); p != nil {
		deps.Publisher = p
	}

	targets := []jobs.RetentionTarget{
		{Name: "validation_reports", Store: reports},
		{Name: "run_summaries", Store: runs},
	}
	if pg, ok := src.(jobs.Pruner); ok {
		targets = append(targets, jobs.RetentionTarget{Name: "collection_runs", Store: pg})
	}

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewQualityGateJob(deps, a.cfg.Gate.Schedule, a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewRetentionJob(a.cfg.Gate.ReportRetentionDays, a.cfg.Gate.RetentionSchedule, a.log, targets...)); err != nil {
		return nil, err
	}

	return sched, nil
}
