package contracts

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Metric names, in the fixed order reasons are reported
const (
	MetricRequiredFieldsRate = "requiredFieldsRate"
	MetricViolationRate      = "violationRate"
	MetricParseFailRate      = "parseFailRate"
	MetricImageValidRate     = "imageValidRate"
)

// ReasonNoSamples marks a platform that produced no samples
const ReasonNoSamples = "no-samples"

// QualityThresholds holds the per-run quality gate thresholds
type QualityThresholds struct {
	RequiredFieldsRate float64 `json:"requiredFieldsRate" yaml:"requiredFieldsRate"` // 이상이어야 통과
	ViolationRate      float64 `json:"violationRate" yaml:"violationRate"`           // 이하여야 통과
	ParseFailRate      float64 `json:"parseFailRate" yaml:"parseFailRate"`           // 이하여야 통과
	ImageValidRate     float64 `json:"imageValidRate" yaml:"imageValidRate"`         // 이상이어야 통과
}

// DefaultThresholds returns the documented default thresholds
func DefaultThresholds() QualityThresholds {
	return QualityThresholds{
		RequiredFieldsRate: 0.85,
		ViolationRate:      0.05,
		ParseFailRate:      0.05,
		ImageValidRate:     0.80,
	}
}

// SampleStatus is the evaluation state of a sample
type SampleStatus string

const (
	SampleStatusPending SampleStatus = "PENDING"
	SampleStatusDone    SampleStatus = "DONE"
	SampleStatusFailed  SampleStatus = "FAILED"
)

// Marker is a loosely-typed sample flag. Producers write booleans, "Y"/"N",
// counts or error strings; the raw JSON is kept and interpreted on read.
type Marker struct {
	raw json.RawMessage
}

// MarkerOf builds a marker from any JSON-encodable value
func MarkerOf(v any) Marker {
	data, err := json.Marshal(v)
	if err != nil {
		return Marker{}
	}
	return Marker{raw: data}
}

// MarshalJSON implements json.Marshaler
func (m Marker) MarshalJSON() ([]byte, error) {
	if len(m.raw) == 0 {
		return []byte("null"), nil
	}
	return m.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Marker) UnmarshalJSON(data []byte) error {
	m.raw = append(m.raw[:0], data...)
	return nil
}

func (m Marker) result() gjson.Result {
	return gjson.ParseBytes(m.raw)
}

// Truthy applies loose truthiness: absent, null, false, 0 and "" are false
func (m Marker) Truthy() bool {
	r := m.result()
	switch r.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return false
	}
}

// Affirmative accepts only boolean true or the literal markers "Y"/"y"
func (m Marker) Affirmative() bool {
	r := m.result()
	switch r.Type {
	case gjson.True:
		return true
	case gjson.String:
		return r.Str == "Y" || r.Str == "y"
	default:
		return false
	}
}

// Int reads the marker as a count; anything non-numeric is 0
func (m Marker) Int() int {
	r := m.result()
	switch r.Type {
	case gjson.Number:
		return int(r.Num)
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Sample is one collected-and-evaluated record within a platform's run
type Sample struct {
	ExternalID         string       `json:"external_id,omitempty"`
	Status             SampleStatus `json:"sample_status"`
	RequiredFields     Marker       `json:"requiredFields"`
	ContractViolations Marker       `json:"contract_violations"`
	ParseError         Marker       `json:"parse_error"`
	ImagesCount        Marker       `json:"images_cnt"`
	ImagesValidCount   Marker       `json:"images_valid_cnt"`
}

// IsPending reports whether the sample has not been evaluated yet
func (s Sample) IsPending() bool {
	return s.Status == SampleStatusPending
}

// PlatformCollection is one platform's ordered samples for a collection run
type PlatformCollection struct {
	Name    string   `json:"name"`
	Mode    string   `json:"mode,omitempty"`
	Samples []Sample `json:"samples"`
}

// SampleMetrics are the four gate rates, each rounded to 3 decimals
type SampleMetrics struct {
	RequiredFieldsRate float64 `json:"requiredFieldsRate"`
	ViolationRate      float64 `json:"violationRate"`
	ParseFailRate      float64 `json:"parseFailRate"`
	ImageValidRate     float64 `json:"imageValidRate"`
}

// PlatformSampleSummary is the quality gate verdict for one platform
// ⭐ SSOT: 플랫폼별 품질 게이트 결과
type PlatformSampleSummary struct {
	Platform  string         `json:"platform"`
	Mode      string         `json:"mode,omitempty"`
	Total     int            `json:"total"`
	Evaluated int            `json:"evaluated"`
	Metrics   *SampleMetrics `json:"metrics,omitempty"` // no-samples일 때 nil
	Pass      bool           `json:"pass"`
	Reasons   []string       `json:"reasons"`
	Reason    string         `json:"reason,omitempty"`
}

// RunSummary is the run-level quality report
type RunSummary struct {
	RunID       string                  `json:"runId"`
	GeneratedAt time.Time               `json:"generatedAt"`
	Thresholds  QualityThresholds       `json:"thresholds"`
	TotalSample int                     `json:"totalSample"`
	Platforms   []PlatformSampleSummary `json:"platforms"`
}

// Passed is true when every platform passed the gate
func (r *RunSummary) Passed() bool {
	if len(r.Platforms) == 0 {
		return false
	}
	for _, p := range r.Platforms {
		if !p.Pass {
			return false
		}
	}
	return true
}

// FailedPlatforms returns the names of platforms that did not pass, in input order
func (r *RunSummary) FailedPlatforms() []string {
	var failed []string
	for _, p := range r.Platforms {
		if !p.Pass {
			failed = append(failed, p.Platform)
		}
	}
	return failed
}
