package quality

import (
	"time"

	"github.com/google/uuid"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/pkg/logger"
)

// Builder assembles run summaries from per-platform sample collections
// ⭐ SSOT: 실행 요약 생성은 이 구조체에서만
type Builder struct {
	logger *logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewBuilder creates a Builder using the wall clock and random run ids
func NewBuilder(log *logger.Logger) *Builder {
	return &Builder{
		logger: log.WithField("module", "quality"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock replaces the capture-time clock
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build summarizes every platform in input order. An empty runID gets a
// generated one. Every input platform yields exactly one entry.
func (b *Builder) Build(runID string, th contracts.QualityThresholds, platforms []contracts.PlatformCollection) *contracts.RunSummary {
	if runID == "" {
		runID = b.newID()
	}

	summary := &contracts.RunSummary{
		RunID:       runID,
		GeneratedAt: b.now().UTC(),
		Thresholds:  th,
		Platforms:   make([]contracts.PlatformSampleSummary, 0, len(platforms)),
	}

	for _, p := range platforms {
		ps := Summarize(p, th)
		summary.TotalSample += ps.Total
		summary.Platforms = append(summary.Platforms, ps)

		log := b.logger.WithFields(map[string]interface{}{
			"run_id":   runID,
			"platform": ps.Platform,
			"total":    ps.Total,
		})
		switch {
		case ps.Reason != "":
			log.WithField("reason", ps.Reason).Warn("Platform has no samples")
		case !ps.Pass:
			log.WithField("reasons", ps.Reasons).Warn("Platform failed quality gate")
		default:
			log.Debug("Platform passed quality gate")
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"run_id":       runID,
		"platforms":    len(summary.Platforms),
		"total_sample": summary.TotalSample,
		"passed":       summary.Passed(),
	}).Info("Run summary built")

	return summary
}

// BuildRequest resolves the request thresholds over base and builds the summary.
// Rejected threshold fields are logged and keep the base value.
func (b *Builder) BuildRequest(req *GateRequest, base contracts.QualityThresholds) *contracts.RunSummary {
	th, rejected := MergeThresholds(base, req.Thresholds)
	if len(rejected) > 0 {
		b.logger.WithFields(map[string]interface{}{
			"run_id": req.RunID,
			"fields": rejected,
		}).Warn("Ignoring invalid thresholds, using configured values")
	}
	return b.Build(req.RunID, th, req.Platforms)
}
