package contract

import (
	"github.com/tidwall/gjson"

	"github.com/wonny/homescan/internal/contracts"
)

// Evaluate validates raw and projects the outcome into a quality-gate sample.
// A malformed record still yields a sample, flagged with parse_error. Payload
// warnings stay in the report and never reach the gate.
func Evaluate(raw []byte) (contracts.Sample, *contracts.ValidationReport, error) {
	doc, err := parseRecord(raw)
	if err != nil {
		return contracts.Sample{
			Status:             contracts.SampleStatusFailed,
			RequiredFields:     contracts.MarkerOf("N"),
			ContractViolations: contracts.MarkerOf(0),
			ParseError:         contracts.MarkerOf(err.Error()),
			ImagesCount:        contracts.MarkerOf(0),
			ImagesValidCount:   contracts.MarkerOf(0),
		}, nil, err
	}

	report := BuildReport(check(doc))
	return project(doc, report), report, nil
}

// project maps a report onto gate markers. requiredFields is "N" when any
// ERROR-level REQ_FIELD_MISSING exists, top-level or under /normalized; the
// WARN for payload.title does not count.
func project(doc gjson.Result, report *contracts.ValidationReport) contracts.Sample {
	required := "Y"
	for _, issue := range report.Issues {
		if issue.Code == contracts.CodeRequiredFieldMissing && issue.Level == contracts.LevelError {
			required = "N"
			break
		}
	}

	total, valid := countImages(doc.Get("normalized_images"))

	sample := contracts.Sample{
		Status:             contracts.SampleStatusDone,
		RequiredFields:     contracts.MarkerOf(required),
		ContractViolations: contracts.MarkerOf(report.Blocking),
		ParseError:         contracts.MarkerOf(false),
		ImagesCount:        contracts.MarkerOf(total),
		ImagesValidCount:   contracts.MarkerOf(valid),
	}
	if id := doc.Get("external_id"); id.Type == gjson.String {
		sample.ExternalID = id.Str
	}
	return sample
}

// countImages counts declared images and the downloaded ones with a usable URL
func countImages(images gjson.Result) (total, valid int) {
	if !images.IsArray() {
		return 0, 0
	}
	for _, img := range images.Array() {
		total++
		src := img.Get("source_url")
		status := img.Get("status")
		if src.Type == gjson.String && IsAbsoluteURL(src.Str) &&
			status.Type == gjson.String && contracts.ImageStatus(status.Str) == contracts.ImageDownloaded {
			valid++
		}
	}
	return total, valid
}
