package quality

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/homescan/internal/contracts"
)

func TestResolveThresholds_Defaults(t *testing.T) {
	th, rejected := ResolveThresholds(nil)

	assert.Equal(t, contracts.DefaultThresholds(), th)
	assert.Empty(t, rejected)
	assert.Equal(t, 0.85, th.RequiredFieldsRate)
	assert.Equal(t, 0.05, th.ViolationRate)
	assert.Equal(t, 0.05, th.ParseFailRate)
	assert.Equal(t, 0.80, th.ImageValidRate)
}

func TestResolveThresholds_PartialOverride(t *testing.T) {
	th, rejected := ResolveThresholds(map[string]any{
		"requiredFieldsRate": 0.9,
		"parseFailRate":      json.Number("0.1"),
	})

	assert.Empty(t, rejected)
	assert.Equal(t, 0.9, th.RequiredFieldsRate)
	assert.Equal(t, 0.05, th.ViolationRate)
	assert.Equal(t, 0.1, th.ParseFailRate)
	assert.Equal(t, 0.80, th.ImageValidRate)
}

func TestResolveThresholds_FallbackPerField(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float", 0.5, 0.5, true},
		{"int zero", 0, 0, true},
		{"int one", 1, 1, true},
		{"numeric string", " 0.7 ", 0.7, true},
		{"json number", json.Number("0.25"), 0.25, true},
		{"word", "high", 0.80, false},
		{"bool", true, 0.80, false},
		{"negative", -0.1, 0.80, false},
		{"above one", 1.5, 0.80, false},
		{"nan", math.NaN(), 0.80, false},
		{"object", map[string]any{"v": 1}, 0.80, false},
		{"null", nil, 0.80, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, rejected := ResolveThresholds(map[string]any{"imageValidRate": tt.value})

			assert.Equal(t, tt.want, th.ImageValidRate)
			if tt.ok {
				assert.Empty(t, rejected)
			} else {
				assert.Equal(t, []string{contracts.MetricImageValidRate}, rejected)
			}
			// other fields untouched
			assert.Equal(t, 0.85, th.RequiredFieldsRate)
		})
	}
}

func TestMergeThresholds_KeepsBaseForRejected(t *testing.T) {
	base := contracts.QualityThresholds{
		RequiredFieldsRate: 0.95,
		ViolationRate:      0.01,
		ParseFailRate:      0.02,
		ImageValidRate:     0.9,
	}

	th, rejected := MergeThresholds(base, map[string]any{
		"violationRate": "lots",
		"parseFailRate": 0.03,
	})

	assert.Equal(t, []string{contracts.MetricViolationRate}, rejected)
	assert.Equal(t, 0.01, th.ViolationRate)
	assert.Equal(t, 0.03, th.ParseFailRate)
	assert.Equal(t, 0.95, th.RequiredFieldsRate)
}

func TestThresholdsMapRoundTrip(t *testing.T) {
	base := contracts.QualityThresholds{RequiredFieldsRate: 0.7, ViolationRate: 0.2, ParseFailRate: 0.3, ImageValidRate: 0.4}

	th, rejected := ResolveThresholds(ThresholdsMap(base))

	assert.Empty(t, rejected)
	assert.Equal(t, base, th)
}
