package whatsapp

import (
	"context"

	"kisaanbot-be/internal/entity"
)

// Sender is the outbound surface the conversation layer depends on.
type Sender interface {
	SendText(ctx context.Context, phoneNumberID, to, text string) error
	SendWelcomeMenu(ctx context.Context, messageID, phoneNumberID, to string) error
	SendQueryConfirmationMenu(ctx context.Context, messageID, phoneNumberID, to string) error
	SendCropConfirmationMenu(ctx context.Context, messageID, phoneNumberID, to, cropNameHi string) error
	SendAmbiguousCropMenu(ctx context.Context, messageID, phoneNumberID, to, titleText string, options []entity.CropOption) error
	SendDistrictMenu(ctx context.Context, messageID, phoneNumberID, to string, districts []string, page int) error
	RequestLocation(ctx context.Context, phoneNumberID, to, text string) error
}

// MediaFetcher resolves and downloads inbound media.
type MediaFetcher interface {
	DownloadByID(ctx context.Context, mediaID string) ([]byte, string, error)
}
