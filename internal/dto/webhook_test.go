package dto

import (
	"encoding/json"
	"testing"
)

const sampleWebhook = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1001",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "911100", "phone_number_id": "pn1"},
        "messages": [{
          "from": "911234",
          "id": "wamid.X1",
          "timestamp": "1724900000",
          "type": "interactive",
          "interactive": {
            "type": "list_reply",
            "list_reply": {"id": "disease_management", "title": "कृषि रोग प्रबंधन"}
          }
        }],
        "statuses": [{"id": "wamid.X0", "status": "read", "timestamp": "1724900001", "recipient_id": "911234"}]
      }
    }]
  }]
}`

func TestWebhookPayloadDecode(t *testing.T) {
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(sampleWebhook), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	value := payload.Entry[0].Changes[0].Value
	if value.Metadata.PhoneNumberID != "pn1" {
		t.Fatalf("phone number id = %q", value.Metadata.PhoneNumberID)
	}
	if len(value.Messages) != 1 || len(value.Statuses) != 1 {
		t.Fatalf("unexpected counts: %d messages, %d statuses", len(value.Messages), len(value.Statuses))
	}

	interaction := value.Messages[0].DecodeInteraction()
	if interaction.Kind != InteractionList {
		t.Fatalf("kind = %s", interaction.Kind)
	}
	if interaction.ID != "disease_management" {
		t.Fatalf("id = %q", interaction.ID)
	}
}

func TestDecodeInteractionVariants(t *testing.T) {
	text := InboundMessage{Type: "text", Text: &TextContent{Body: "hi"}}
	if got := text.DecodeInteraction(); got.Kind != InteractionNone {
		t.Fatalf("text message decoded as %s", got.Kind)
	}

	button := InboundMessage{Type: "interactive", Interactive: &InteractiveContent{
		Type:        "button_reply",
		ButtonReply: &ReplyContent{ID: "crop_confirm_yes", Title: "हाँ"},
	}}
	if got := button.DecodeInteraction(); got.Kind != InteractionButton || got.ID != "crop_confirm_yes" {
		t.Fatalf("button decoded as %+v", got)
	}

	// A malformed interactive payload with no reply section is not an
	// interaction.
	hollow := InboundMessage{Type: "interactive", Interactive: &InteractiveContent{Type: "button_reply"}}
	if got := hollow.DecodeInteraction(); got.Kind != InteractionNone {
		t.Fatalf("hollow interactive decoded as %s", got.Kind)
	}
}
