package contract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// absoluteURLPattern matches "scheme://rest" with a non-empty rest
var absoluteURLPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://\S+$`)

// timestampLayouts are the date/time shapes emitted by the source platforms
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	time.RFC1123Z,
	time.RFC1123,
}

// numericUnitSuffixes are stripped before parsing payload numbers ("1,000만원", "33.5㎡")
var numericUnitSuffixes = []string{"만원", "원", "만", "㎡", "m²", "m2"}

// IsAbsoluteURL reports whether s has an absolute-URL shape
func IsAbsoluteURL(s string) bool {
	return absoluteURLPattern.MatchString(strings.TrimSpace(s))
}

// ParseTimestamp parses s with the accepted layouts
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsTimestamp reports whether s parses as a calendar date/time
func IsTimestamp(s string) bool {
	_, ok := ParseTimestamp(s)
	return ok
}

// IsNonEmptyString reports whether r is a string with visible content
func IsNonEmptyString(r gjson.Result) bool {
	return r.Type == gjson.String && strings.TrimSpace(r.Str) != ""
}

// IsAbsent reports whether r is missing or JSON null
func IsAbsent(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null
}

// IsNumberOrNull reports whether r is present and is a number or null
func IsNumberOrNull(r gjson.Result) bool {
	return r.Exists() && (r.Type == gjson.Number || r.Type == gjson.Null)
}

// ParseNumeric reads r as a number. Strings are accepted after removing
// thousands separators and a known unit suffix.
func ParseNumeric(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		return parseNumericText(r.Str)
	default:
		return 0, false
	}
}

func parseNumericText(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	for _, suffix := range numericUnitSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
