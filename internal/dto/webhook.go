package dto

// Graph API webhook envelope. Only the fields the conversation layer reads
// are mapped.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []MessageStatus  `json:"statuses"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type InboundMessage struct {
	From        string              `json:"from" validate:"required"`
	ID          string              `json:"id" validate:"required"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type" validate:"required"`
	Text        *TextContent        `json:"text,omitempty"`
	Audio       *MediaContent       `json:"audio,omitempty"`
	Image       *MediaContent       `json:"image,omitempty"`
	Location    *LocationContent    `json:"location,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

type LocationContent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type InteractiveContent struct {
	Type        string        `json:"type"`
	ButtonReply *ReplyContent `json:"button_reply,omitempty"`
	ListReply   *ReplyContent `json:"list_reply,omitempty"`
}

type ReplyContent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InteractionKind tags the decoded interactive reply.
type InteractionKind string

const (
	InteractionNone   InteractionKind = "none"
	InteractionButton InteractionKind = "button"
	InteractionList   InteractionKind = "list"
)

// Interaction is the interactive reply decoded once at the webhook boundary.
// Downstream code switches on Kind instead of re-probing nested pointers.
type Interaction struct {
	Kind  InteractionKind
	ID    string
	Title string
}

// DecodeInteraction flattens the nested interactive payload. A message that
// is not an interactive reply, or whose reply section is missing, decodes to
// InteractionNone.
func (m *InboundMessage) DecodeInteraction() Interaction {
	if m.Interactive == nil {
		return Interaction{Kind: InteractionNone}
	}
	switch m.Interactive.Type {
	case "button_reply":
		if r := m.Interactive.ButtonReply; r != nil {
			return Interaction{Kind: InteractionButton, ID: r.ID, Title: r.Title}
		}
	case "list_reply":
		if r := m.Interactive.ListReply; r != nil {
			return Interaction{Kind: InteractionList, ID: r.ID, Title: r.Title}
		}
	}
	return Interaction{Kind: InteractionNone}
}
