package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/homescan/pkg/logger"
)

// Pruner deletes rows older than a cutoff
type Pruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionTarget is a named store swept by the retention job
type RetentionTarget struct {
	Name  string
	Store Pruner
}

// RetentionJob removes validation reports, run summaries, and gated raw runs
// past the retention window
type RetentionJob struct {
	targets  []RetentionTarget
	days     int
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewRetentionJob creates a new retention job. days <= 0 disables deletion.
func NewRetentionJob(days int, schedule string, log *logger.Logger, targets ...RetentionTarget) *RetentionJob {
	return &RetentionJob{
		targets:  targets,
		days:     days,
		schedule: schedule,
		now:      time.Now,
		logger:   log.WithField("job", "retention"),
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "retention"
}

// Schedule returns the cron schedule
func (j *RetentionJob) Schedule() string {
	return j.schedule
}

// Cutoff returns the oldest timestamp kept
func (j *RetentionJob) Cutoff() time.Time {
	return j.now().AddDate(0, 0, -j.days)
}

// Run sweeps every target; one failing target does not stop the others
func (j *RetentionJob) Run(ctx context.Context) error {
	if j.days <= 0 {
		j.logger.Debug("Retention disabled")
		return nil
	}

	cutoff := j.Cutoff()
	var errs []error
	for _, t := range j.targets {
		n, err := t.Store.DeleteBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		if n > 0 {
			j.logger.WithFields(map[string]interface{}{
				"target":  t.Name,
				"removed": n,
				"cutoff":  cutoff,
			}).Info("Retention cleanup completed")
		}
	}

	return errors.Join(errs...)
}
