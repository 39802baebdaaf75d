package contract

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/pkg/logger"
)

// Validator runs contract validation over record batches with a worker pool
// ⭐ SSOT: 배치 검증 오케스트레이션은 이 구조체에서만
type Validator struct {
	logger  *logger.Logger
	workers int
}

// BatchResult is the outcome for one record of a batch
type BatchResult struct {
	Index  int                         `json:"index"`
	Sample contracts.Sample            `json:"sample"`
	Report *contracts.ValidationReport `json:"report,omitempty"`
	Err    error                       `json:"-"`
}

// NewValidator creates a Validator; workers <= 0 means one worker
func NewValidator(log *logger.Logger, workers int) *Validator {
	if workers <= 0 {
		workers = 1
	}
	return &Validator{
		logger:  log.WithField("module", "contract"),
		workers: workers,
	}
}

// ValidateBatch evaluates every record and returns results in input order.
// A malformed record only fails its own slot. Records not reached before ctx
// is done carry ctx.Err().
func (v *Validator) ValidateBatch(ctx context.Context, records []json.RawMessage) []BatchResult {
	results := make([]BatchResult, len(records))
	if len(records) == 0 {
		return results
	}

	workers := v.workers
	if workers > len(records) {
		workers = len(records)
	}

	indexCh := make(chan int, len(records))
	for i := range records {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				if err := ctx.Err(); err != nil {
					results[i] = BatchResult{Index: i, Err: err}
					continue
				}
				sample, report, err := Evaluate(records[i])
				results[i] = BatchResult{Index: i, Sample: sample, Report: report, Err: err}
			}
		}()
	}
	wg.Wait()

	valid, invalid, malformed, skipped := 0, 0, 0, 0
	for _, r := range results {
		switch {
		case errors.Is(r.Err, ErrMalformedRecord):
			malformed++
		case r.Err != nil:
			skipped++
		case r.Report.Valid:
			valid++
		default:
			invalid++
		}
	}

	v.logger.WithFields(map[string]interface{}{
		"records":   len(records),
		"valid":     valid,
		"invalid":   invalid,
		"malformed": malformed,
		"skipped":   skipped,
		"workers":   workers,
	}).Debug("Batch validation completed")

	return results
}

// EvaluatePlatform validates one platform's records and builds its sample collection
func (v *Validator) EvaluatePlatform(ctx context.Context, name, mode string, records []json.RawMessage) (contracts.PlatformCollection, []BatchResult) {
	results := v.ValidateBatch(ctx, records)

	collection := contracts.PlatformCollection{
		Name:    name,
		Mode:    mode,
		Samples: make([]contracts.Sample, 0, len(results)),
	}
	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, ErrMalformedRecord) {
			// 취소로 평가되지 않은 레코드는 PENDING
			collection.Samples = append(collection.Samples, contracts.Sample{Status: contracts.SampleStatusPending})
			continue
		}
		collection.Samples = append(collection.Samples, r.Sample)
	}

	return collection, results
}
