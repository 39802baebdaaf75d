package contracts

// LeaseType is the normalized lease classification
type LeaseType string

const (
	LeaseMonthly   LeaseType = "월세"
	LeaseJeonse    LeaseType = "전세"
	LeaseShortTerm LeaseType = "단기"
	LeaseOther     LeaseType = "기타"
)

// LeaseTypes lists every accepted lease type
var LeaseTypes = []LeaseType{LeaseMonthly, LeaseJeonse, LeaseShortTerm, LeaseOther}

// Valid reports whether l is one of the four lease types
func (l LeaseType) Valid() bool {
	for _, t := range LeaseTypes {
		if l == t {
			return true
		}
	}
	return false
}

// ImageStatus is the download state of a normalized image
type ImageStatus string

const (
	ImageQueued     ImageStatus = "queued"
	ImageDownloaded ImageStatus = "downloaded"
	ImageFailed     ImageStatus = "failed"
	ImageSkipped    ImageStatus = "skipped"
)

// ImageStatuses lists every accepted image status
var ImageStatuses = []ImageStatus{ImageQueued, ImageDownloaded, ImageFailed, ImageSkipped}

// Valid reports whether s is one of the four image statuses
func (s ImageStatus) Valid() bool {
	for _, v := range ImageStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// RawCollectionRecord is one scraped listing handed over by the collection stage
// ⭐ SSOT: 수집 단계 → 검증 단계 레코드 형식
//
// The typed shape is what well-behaved producers emit. The validator itself reads
// raw JSON so that wrong-typed fields surface as issues instead of decode errors.
type RawCollectionRecord struct {
	SchemaVersion    string             `json:"schema_version"`
	CollectionRunID  string             `json:"collection_run_id"`
	PlatformCode     string             `json:"platform_code"`
	ExternalID       string             `json:"external_id"`
	SourceURL        string             `json:"source_url"`
	CollectedAt      string             `json:"collected_at"`
	Payload          map[string]any     `json:"payload"`
	Normalized       *NormalizedListing `json:"normalized,omitempty"`
	NormalizedImages []NormalizedImage  `json:"normalized_images,omitempty"`
}

// NormalizedListing is the canonical projection used for storage and matching
type NormalizedListing struct {
	CanonicalKey    string    `json:"canonical_key"`
	SourceURL       string    `json:"source_url"`
	AddressText     string    `json:"address_text"`
	AddressCode     string    `json:"address_code"`
	LeaseType       LeaseType `json:"lease_type"`
	RentAmount      *float64  `json:"rent_amount"`       // 만원, 전세는 null
	DepositAmount   *float64  `json:"deposit_amount"`    // 만원
	AreaExclusiveM2 *float64  `json:"area_exclusive_m2"` // 전용면적
	SourceRef       string    `json:"source_ref"`
}

// NormalizedImage is one image reference attached to a record
type NormalizedImage struct {
	SourceURL string      `json:"source_url"`
	Status    ImageStatus `json:"status"`
}

// Float returns a pointer to v, for filling nullable amounts
func Float(v float64) *float64 {
	return &v
}
