package quality

import (
	"math"

	"github.com/wonny/homescan/internal/contracts"
)

// Summarize computes one platform's quality gate verdict. It is pure and safe
// to call concurrently with different thresholds.
// ⭐ SSOT: 플랫폼 품질 지표 계산은 이 함수에서만
func Summarize(p contracts.PlatformCollection, th contracts.QualityThresholds) contracts.PlatformSampleSummary {
	summary := contracts.PlatformSampleSummary{
		Platform: p.Name,
		Mode:     p.Mode,
		Total:    len(p.Samples),
		Reasons:  []string{},
	}

	// 샘플이 없으면 지표 대신 no-samples
	if len(p.Samples) == 0 {
		summary.Reason = contracts.ReasonNoSamples
		return summary
	}

	var (
		evaluated    int // non-pending
		required     int
		violated     int
		parseFailed  int
		imageSamples int
		imageOK      int
	)

	for _, s := range p.Samples {
		pending := s.IsPending()

		// parse_error는 PENDING이어도 집계, contract_violations는 평가된 샘플만
		if s.ParseError.Truthy() || (!pending && s.ContractViolations.Truthy()) {
			parseFailed++
		}

		if pending {
			continue
		}
		evaluated++

		if s.RequiredFields.Affirmative() {
			required++
		}
		if s.ContractViolations.Truthy() {
			violated++
		}

		total := s.ImagesCount.Int()
		if total <= 0 {
			continue
		}
		imageSamples++
		if float64(s.ImagesValidCount.Int())/float64(total) >= th.ImageValidRate {
			imageOK++
		}
	}

	metrics := &contracts.SampleMetrics{
		RequiredFieldsRate: rate(required, evaluated),
		ViolationRate:      rate(violated, evaluated),
		// 분모는 평가된 샘플 수 (PENDING 포함 분자와 비대칭, 기존 수치 유지)
		ParseFailRate:  rate(parseFailed, evaluated),
		ImageValidRate: rate(imageOK, imageSamples),
	}

	summary.Evaluated = evaluated
	summary.Metrics = metrics
	summary.Reasons = failedMetrics(metrics, th)
	summary.Pass = len(summary.Reasons) == 0

	return summary
}

// failedMetrics lists the failing comparisons in the fixed reporting order
func failedMetrics(m *contracts.SampleMetrics, th contracts.QualityThresholds) []string {
	reasons := []string{}
	if m.RequiredFieldsRate < th.RequiredFieldsRate {
		reasons = append(reasons, contracts.MetricRequiredFieldsRate)
	}
	if m.ViolationRate > th.ViolationRate {
		reasons = append(reasons, contracts.MetricViolationRate)
	}
	if m.ParseFailRate > th.ParseFailRate {
		reasons = append(reasons, contracts.MetricParseFailRate)
	}
	if m.ImageValidRate < th.ImageValidRate {
		reasons = append(reasons, contracts.MetricImageValidRate)
	}
	return reasons
}

// rate divides by max(1, den) and rounds to 3 decimals
func rate(num, den int) float64 {
	if den < 1 {
		den = 1
	}
	return round3(float64(num) / float64(den))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
