package whatsapp

// Outbound Graph API message payloads. Only the shapes this service sends.

type TextBody struct {
	Body string `json:"body"`
}

type ReplyButton struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Button struct {
	Type  string      `json:"type"`
	Reply ReplyButton `json:"reply"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type InteractiveBody struct {
	Text string `json:"text"`
}

type InteractiveFooter struct {
	Text string `json:"text"`
}

type InteractiveAction struct {
	Name     string    `json:"name,omitempty"`
	Button   string    `json:"button,omitempty"`
	Buttons  []Button  `json:"buttons,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

type Interactive struct {
	Type   string             `json:"type"`
	Header *InteractiveHeader `json:"header,omitempty"`
	Body   InteractiveBody    `json:"body"`
	Footer *InteractiveFooter `json:"footer,omitempty"`
	Action InteractiveAction  `json:"action"`
}

type MessageRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to,omitempty"`
	Type             string       `json:"type,omitempty"`
	Text             *TextBody    `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`

	// Read receipt / typing indicator payload fields.
	Status          string           `json:"status,omitempty"`
	MessageID       string           `json:"message_id,omitempty"`
	TypingIndicator *TypingIndicator `json:"typing_indicator,omitempty"`
}

type TypingIndicator struct {
	Type string `json:"type"`
}

type MediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
	ID       string `json:"id"`
}

// Interactive reply ids the conversation layer dispatches on.
const (
	ButtonQueryContinue  = "query_continue"
	ButtonQueryDone      = "query_done"
	ButtonCropConfirmYes = "crop_confirm_yes"
	ButtonCropConfirmNo  = "crop_confirm_no"

	RowDistrictPrev   = "dist_prev"
	RowDistrictNext   = "dist_next"
	RowDistrictPrefix = "dist_"
)
