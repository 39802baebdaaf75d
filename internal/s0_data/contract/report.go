package contract

import "github.com/wonny/homescan/internal/contracts"

// blockingIssues keeps the issues that decide validity: every ERROR except
// REQ_FIELD_MISSING. Missing fields stay visible in Counts.Error for callers
// that gate on all errors.
func blockingIssues(issues []contracts.ValidationIssue) []contracts.ValidationIssue {
	var out []contracts.ValidationIssue
	for _, issue := range issues {
		if issue.Level != contracts.LevelError {
			continue
		}
		if issue.Code == contracts.CodeRequiredFieldMissing {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// BuildReport aggregates issues into a report. The issue slice is copied.
func BuildReport(issues []contracts.ValidationIssue) *contracts.ValidationReport {
	report := &contracts.ValidationReport{
		Issues: make([]contracts.ValidationIssue, len(issues)),
	}
	copy(report.Issues, issues)

	for _, issue := range issues {
		switch issue.Level {
		case contracts.LevelError:
			report.Counts.Error++
		case contracts.LevelWarn:
			report.Counts.Warn++
		}
	}

	report.Blocking = len(blockingIssues(issues))
	report.Valid = report.Blocking == 0

	return report
}
