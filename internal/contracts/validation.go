package contracts

// IssueLevel is the severity of a validation issue
type IssueLevel string

const (
	LevelError IssueLevel = "ERROR"
	LevelWarn  IssueLevel = "WARN"
)

// IssueCode classifies a validation issue
type IssueCode string

const (
	CodeRequiredFieldMissing IssueCode = "REQ_FIELD_MISSING"
	CodeFieldTypeMismatch    IssueCode = "REQ_FIELD_TYPE_MISMATCH"
	CodeURLInvalid           IssueCode = "URL_INVALID"
	CodePriceParseFail       IssueCode = "PRICE_PARSE_FAIL"
	CodeAreaParseFail        IssueCode = "AREA_PARSE_FAIL"
	CodeImageURLInvalid      IssueCode = "IMAGE_URL_INVALID"
)

// ValidationIssue is one finding against a record. Path is a JSON pointer.
type ValidationIssue struct {
	Code    IssueCode  `json:"code"`
	Level   IssueLevel `json:"level"`
	Path    string     `json:"path"`
	Message string     `json:"message"`
}

// IssueCounts counts issues per level
type IssueCounts struct {
	Error int `json:"ERROR"`
	Warn  int `json:"WARN"`
}

// ValidationReport is the derived result of validating one record
// ⭐ SSOT: 검증 단계 → 품질 게이트 결과 전달
//
// Counts.Error includes every ERROR issue. Blocking counts only the ERROR issues
// that decide Valid, so callers can apply a stricter policy on Counts.Error.
type ValidationReport struct {
	Valid    bool              `json:"valid"`
	Counts   IssueCounts       `json:"counts"`
	Blocking int               `json:"blocking"`
	Issues   []ValidationIssue `json:"errors"`
}

// HasCode reports whether any issue carries code
func (r *ValidationReport) HasCode(code IssueCode) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// IssuesAt returns the issues recorded at path, in report order
func (r *ValidationReport) IssuesAt(path string) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Path == path {
			out = append(out, issue)
		}
	}
	return out
}

// StrictValid is true only when there are no ERROR issues at all
func (r *ValidationReport) StrictValid() bool {
	return r.Counts.Error == 0
}
