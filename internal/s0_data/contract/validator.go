package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/wonny/homescan/internal/contracts"
)

// ErrMalformedRecord is returned when the input is not a JSON object at all.
// Every other defect is reported as an issue.
var ErrMalformedRecord = errors.New("malformed collection record")

// requiredStringFields are the top-level provenance fields, in report order
var requiredStringFields = []string{
	"schema_version",
	"collection_run_id",
	"platform_code",
	"external_id",
	"source_url",
	"collected_at",
}

// requiredNormalizedStrings must be non-empty strings inside normalized
var requiredNormalizedStrings = []string{"canonical_key", "address_text", "address_code", "source_ref"}

// nullableNormalizedNumbers must be present as a number or null
var nullableNormalizedNumbers = []string{"rent_amount", "deposit_amount", "area_exclusive_m2"}

// payloadPriceFields are checked best-effort inside payload.price
var payloadPriceFields = []string{"monthly_rent", "deposit"}

// Validate checks one raw collection record against the listing contract
// ⭐ SSOT: 레코드 계약 검증은 이 함수에서만
func Validate(raw []byte) (*contracts.ValidationReport, error) {
	doc, err := parseRecord(raw)
	if err != nil {
		return nil, err
	}
	return BuildReport(check(doc)), nil
}

// ValidateRecord validates a typed record through its JSON form
func ValidateRecord(rec *contracts.RawCollectionRecord) (*contracts.ValidationReport, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return Validate(data)
}

func parseRecord(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformedRecord)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: top-level value is %s, want object", ErrMalformedRecord, doc.Type)
	}
	// gjson은 중복 키 중 첫 번째를, encoding/json은 마지막을 읽음
	if path, ok := duplicateKey(doc, ""); ok {
		return gjson.Result{}, fmt.Errorf("%w: duplicate key %s", ErrMalformedRecord, path)
	}
	return doc, nil
}

// duplicateKey returns the JSON pointer of the first key repeated within one object
func duplicateKey(r gjson.Result, base string) (string, bool) {
	var (
		found string
		dup   bool
	)
	switch {
	case r.IsObject():
		seen := make(map[string]struct{})
		r.ForEach(func(key, value gjson.Result) bool {
			path := base + "/" + key.String()
			if _, ok := seen[key.String()]; ok {
				found, dup = path, true
				return false
			}
			seen[key.String()] = struct{}{}
			found, dup = duplicateKey(value, path)
			return !dup
		})
	case r.IsArray():
		i := 0
		r.ForEach(func(_, value gjson.Result) bool {
			found, dup = duplicateKey(value, base+"/"+strconv.Itoa(i))
			i++
			return !dup
		})
	}
	return found, dup
}

// checker collects issues in rule order. Issues are only ever appended.
type checker struct {
	doc    gjson.Result
	issues []contracts.ValidationIssue
}

func check(doc gjson.Result) []contracts.ValidationIssue {
	c := &checker{doc: doc}

	c.checkRequiredFields() // 1. 필수 필드
	c.checkURLs()           // 2. URL 형식
	c.checkCollectedAt()    // 3. 수집 시각
	c.checkPayload()        // 4. payload (경고만)
	c.checkNormalized()     // 5-6. normalized
	c.checkImages()         // 7. normalized_images

	return c.issues
}

func (c *checker) add(code contracts.IssueCode, level contracts.IssueLevel, path, format string, args ...any) {
	c.issues = append(c.issues, contracts.ValidationIssue{
		Code:    code,
		Level:   level,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (c *checker) checkRequiredFields() {
	for _, name := range requiredStringFields {
		r := c.doc.Get(name)
		path := "/" + name
		switch {
		case IsAbsent(r):
			c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, path, "%s is required", name)
		case r.Type != gjson.String:
			c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, path, "%s must be a string, got %s", name, r.Type)
		case !IsNonEmptyString(r):
			c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, path, "%s must not be empty", name)
		}
	}

	payload := c.doc.Get("payload")
	switch {
	case IsAbsent(payload):
		c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, "/payload", "payload is required")
	case !payload.IsObject():
		c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, "/payload", "payload must be an object, got %s", payload.Type)
	}
}

func (c *checker) checkURLs() {
	src := c.doc.Get("source_url")
	if IsNonEmptyString(src) && !IsAbsoluteURL(src.Str) {
		c.add(contracts.CodeURLInvalid, contracts.LevelError, "/source_url", "source_url is not an absolute URL: %q", src.Str)
	}

	normalized := c.doc.Get("normalized")
	if !normalized.IsObject() {
		return
	}
	nsrc := normalized.Get("source_url")
	if nsrc.Type != gjson.String || !IsAbsoluteURL(nsrc.Str) {
		c.add(contracts.CodeURLInvalid, contracts.LevelError, "/normalized/source_url", "normalized.source_url is not an absolute URL: %s", describe(nsrc))
	}
}

func (c *checker) checkCollectedAt() {
	r := c.doc.Get("collected_at")
	if IsNonEmptyString(r) && !IsTimestamp(r.Str) {
		c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, "/collected_at", "collected_at is not a date/time: %q", r.Str)
	}
}

// checkPayload never raises ERROR: payload shape differs per platform
func (c *checker) checkPayload() {
	payload := c.doc.Get("payload")
	if !payload.IsObject() {
		return
	}

	if !IsNonEmptyString(payload.Get("title")) {
		c.add(contracts.CodeRequiredFieldMissing, contracts.LevelWarn, "/payload/title", "payload.title is recommended")
	}

	for _, name := range payloadPriceFields {
		r := payload.Get("price." + name)
		if IsAbsent(r) {
			continue
		}
		if _, ok := ParseNumeric(r); !ok {
			c.add(contracts.CodePriceParseFail, contracts.LevelWarn, "/payload/price/"+name, "payload.price.%s is not a number: %s", name, r.Raw)
		}
	}

	_, exclusiveOK := ParseNumeric(payload.Get("area.exclusive_m2"))
	_, grossOK := ParseNumeric(payload.Get("area.gross_m2"))
	if !exclusiveOK && !grossOK {
		c.add(contracts.CodeAreaParseFail, contracts.LevelWarn, "/payload/area", "payload.area has neither exclusive_m2 nor gross_m2")
	}
}

func (c *checker) checkNormalized() {
	n := c.doc.Get("normalized")
	if IsAbsent(n) {
		c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, "/normalized", "normalized is required")
		return
	}
	if !n.IsObject() {
		c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, "/normalized", "normalized must be an object, got %s", n.Type)
		return
	}

	for _, name := range requiredNormalizedStrings {
		if !IsNonEmptyString(n.Get(name)) {
			c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, "/normalized/"+name, "normalized.%s is required", name)
		}
	}

	lt := n.Get("lease_type")
	if lt.Type != gjson.String || !contracts.LeaseType(lt.Str).Valid() {
		c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, "/normalized/lease_type",
			"normalized.lease_type must be one of %v, got %s", contracts.LeaseTypes, describe(lt))
	}

	for _, name := range nullableNormalizedNumbers {
		r := n.Get(name)
		path := "/normalized/" + name
		switch {
		case !r.Exists():
			c.add(contracts.CodeRequiredFieldMissing, contracts.LevelError, path, "normalized.%s must be present (null allowed)", name)
		case !IsNumberOrNull(r):
			c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, path, "normalized.%s must be a number or null, got %s", name, r.Type)
		}
	}
}

func (c *checker) checkImages() {
	images := c.doc.Get("normalized_images")
	if IsAbsent(images) {
		return
	}
	if !images.IsArray() {
		c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, "/normalized_images", "normalized_images must be an array, got %s", images.Type)
		return
	}

	for i, img := range images.Array() {
		base := "/normalized_images/" + strconv.Itoa(i)
		if !img.IsObject() {
			c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, base, "image entry must be an object, got %s", img.Type)
			continue
		}

		src := img.Get("source_url")
		if src.Type != gjson.String || !IsAbsoluteURL(src.Str) {
			c.add(contracts.CodeImageURLInvalid, contracts.LevelError, base+"/source_url", "image source_url is not an absolute URL: %s", describe(src))
		}

		status := img.Get("status")
		if status.Type != gjson.String || !contracts.ImageStatus(status.Str).Valid() {
			c.add(contracts.CodeFieldTypeMismatch, contracts.LevelError, base+"/status",
				"image status must be one of %v, got %s", contracts.ImageStatuses, describe(status))
		}
	}
}

// describe renders a value for messages; absent values have no Raw text
func describe(r gjson.Result) string {
	if !r.Exists() {
		return "nothing"
	}
	return r.Raw
}
