package quality

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/homescan/internal/contracts"
)

// ResolveThresholds reads raw thresholds over the defaults
func ResolveThresholds(raw map[string]any) (contracts.QualityThresholds, []string) {
	return MergeThresholds(contracts.DefaultThresholds(), raw)
}

// MergeThresholds overrides base field by field with the usable values in raw.
// Missing keys keep the base value silently; values that are present but not a
// finite number in [0,1] keep the base value and are returned as rejected.
// ⭐ SSOT: 임계값 병합 규칙은 여기서만
func MergeThresholds(base contracts.QualityThresholds, raw map[string]any) (contracts.QualityThresholds, []string) {
	resolved := base
	rejected := []string{}

	fields := []struct {
		name string
		dst  *float64
	}{
		{contracts.MetricRequiredFieldsRate, &resolved.RequiredFieldsRate},
		{contracts.MetricViolationRate, &resolved.ViolationRate},
		{contracts.MetricParseFailRate, &resolved.ParseFailRate},
		{contracts.MetricImageValidRate, &resolved.ImageValidRate},
	}

	for _, f := range fields {
		v, ok := raw[f.name]
		if !ok || v == nil {
			continue
		}
		n, ok := thresholdValue(v)
		if !ok {
			rejected = append(rejected, f.name)
			continue
		}
		*f.dst = n
	}

	return resolved, rejected
}

// ThresholdsMap renders thresholds in the loosely-typed form MergeThresholds reads
func ThresholdsMap(th contracts.QualityThresholds) map[string]any {
	return map[string]any{
		contracts.MetricRequiredFieldsRate: th.RequiredFieldsRate,
		contracts.MetricViolationRate:      th.ViolationRate,
		contracts.MetricParseFailRate:      th.ParseFailRate,
		contracts.MetricImageValidRate:     th.ImageValidRate,
	}
}

func thresholdValue(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > 1 {
		return 0, false
	}
	return n, true
}
