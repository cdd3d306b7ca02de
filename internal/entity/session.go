package entity

import "time"

type SessionState string

const (
	StateGreeting                    SessionState = "GREETING"
	StateAwaitingMenuChoice          SessionState = "AWAITING_MENU_CHOICE"
	StateAwaitingWeatherLocation     SessionState = "AWAITING_WEATHER_LOCATION"
	StateAwaitingDistrictName        SessionState = "AWAITING_DISTRICT_NAME"
	StateAwaitingCropName            SessionState = "AWAITING_CROP_NAME"
	StateAwaitingCropConfirmation    SessionState = "AWAITING_CROP_CONFIRMATION"
	StateAwaitingAmbiguousCropChoice SessionState = "AWAITING_AMBIGUOUS_CROP_CHOICE"
	StateCollectingQuery             SessionState = "CROP_ADVICE_QUERY_COLLECTING"
	StateProcessingQuery             SessionState = "PROCESSING_CROP_QUERY"
)

type AdviceCategory string

const (
	CategoryWeather    AdviceCategory = "weather_info"
	CategoryDisease    AdviceCategory = "disease_management"
	CategoryInsect     AdviceCategory = "insect_management"
	CategoryFertilizer AdviceCategory = "fertilizer_use"
	CategoryWeed       AdviceCategory = "weed_management"
	CategoryVariety    AdviceCategory = "variety_sowing_time"
	CategoryOther      AdviceCategory = "others"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// QueryBundle holds the three parallel collected-input sequences. They are
// appended to only while the session is in CROP_ADVICE_QUERY_COLLECTING and
// are always reset together.
type QueryBundle struct {
	Texts     []string `json:"texts"`
	AudioRefs []string `json:"audioRefs"`
	ImageRefs []string `json:"imageRefs"`
}

func (q QueryBundle) IsEmpty() bool {
	return len(q.Texts) == 0 && len(q.AudioRefs) == 0 && len(q.ImageRefs) == 0
}

type EvidenceStatus string

const (
	EvidenceFound   EvidenceStatus = "FOUND"
	EvidenceMissing EvidenceStatus = "MISSING"
	EvidenceError   EvidenceStatus = "ERROR"
)

// EvidenceRecord is the audit record for one atomic sub-question. It is never
// mutated after creation.
type EvidenceRecord struct {
	Query          string         `json:"query"`
	Crop           string         `json:"crop"`
	Status         EvidenceStatus `json:"status"`
	Evidence       []string       `json:"evidence"`
	MatchedCropTag string         `json:"matchedCropTag"`
	Score          float64        `json:"score"`
}

// CropOption is one candidate offered to the user when a crop mention is
// ambiguous.
type CropOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Session is the per-user conversation state. At most one live session exists
// per user; it expires after the sliding inactivity TTL.
type Session struct {
	UserID    string       `json:"userId"`
	SessionID string       `json:"sessionId"`
	State     SessionState `json:"state"`

	Crop               string         `json:"crop,omitempty"`
	CropHi             string         `json:"cropHi,omitempty"`
	IsExistingCrop     bool           `json:"isExistingCrop"`
	CropAdviceCategory AdviceCategory `json:"cropAdviceCategory,omitempty"`

	District string    `json:"district,omitempty"`
	Location *Location `json:"location,omitempty"`

	Query             QueryBundle      `json:"query"`
	AggregatedQuery   string           `json:"aggregatedQuery,omitempty"`
	DecomposedQueries []string         `json:"decomposedQueries,omitempty"`
	RagResults        []EvidenceRecord `json:"ragResults,omitempty"`
	AdviceResponses   []string         `json:"adviceResponses,omitempty"`

	// Scratch space while a detected crop awaits user confirmation.
	PendingCrop         string       `json:"pendingCrop,omitempty"`
	PendingCropHi       string       `json:"pendingCropHi,omitempty"`
	PendingCropExisting bool         `json:"pendingCropExisting,omitempty"`
	PendingCropOptions  []CropOption `json:"pendingCropOptions,omitempty"`

	DistrictPage int `json:"districtPage,omitempty"`

	// Monotonic per-session counter used to name uploaded media blobs.
	UploadCount int `json:"uploadCount"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// SessionPatch is an explicit partial update. Nil fields are left untouched;
// the repository applies the patch under read-modify-write.
type SessionPatch struct {
	State              *SessionState
	Crop               *string
	CropHi             *string
	IsExistingCrop     *bool
	CropAdviceCategory *AdviceCategory
	District           *string
	Location           *Location
	Query              *QueryBundle
	AggregatedQuery    *string
	DecomposedQueries  *[]string
	RagResults         *[]EvidenceRecord
	AdviceResponses    *[]string

	PendingCrop         *string
	PendingCropHi       *string
	PendingCropExisting *bool
	PendingCropOptions  *[]CropOption

	DistrictPage *int
	UploadCount  *int
}

// Apply merges the patch into the session and bumps UpdatedAt.
func (p SessionPatch) Apply(s *Session) {
	if p.State != nil {
		s.State = *p.State
	}
	if p.Crop != nil {
		s.Crop = *p.Crop
	}
	if p.CropHi != nil {
		s.CropHi = *p.CropHi
	}
	if p.IsExistingCrop != nil {
		s.IsExistingCrop = *p.IsExistingCrop
	}
	if p.CropAdviceCategory != nil {
		s.CropAdviceCategory = *p.CropAdviceCategory
	}
	if p.District != nil {
		s.District = *p.District
	}
	if p.Location != nil {
		s.Location = p.Location
	}
	if p.Query != nil {
		s.Query = *p.Query
	}
	if p.AggregatedQuery != nil {
		s.AggregatedQuery = *p.AggregatedQuery
	}
	if p.DecomposedQueries != nil {
		s.DecomposedQueries = *p.DecomposedQueries
	}
	if p.RagResults != nil {
		s.RagResults = *p.RagResults
	}
	if p.AdviceResponses != nil {
		s.AdviceResponses = *p.AdviceResponses
	}
	if p.PendingCrop != nil {
		s.PendingCrop = *p.PendingCrop
	}
	if p.PendingCropHi != nil {
		s.PendingCropHi = *p.PendingCropHi
	}
	if p.PendingCropExisting != nil {
		s.PendingCropExisting = *p.PendingCropExisting
	}
	if p.PendingCropOptions != nil {
		s.PendingCropOptions = *p.PendingCropOptions
	}
	if p.DistrictPage != nil {
		s.DistrictPage = *p.DistrictPage
	}
	if p.UploadCount != nil {
		s.UploadCount = *p.UploadCount
	}
	s.UpdatedAt = time.Now().UnixMilli()
}

// Pointer helpers for building patches.

func StatePtr(s SessionState) *SessionState       { return &s }
func StrPtr(s string) *string                     { return &s }
func BoolPtr(b bool) *bool                        { return &b }
func IntPtr(i int) *int                           { return &i }
func CategoryPtr(c AdviceCategory) *AdviceCategory { return &c }
