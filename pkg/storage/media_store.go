package storage

import "context"

// MediaStore persists inbound farmer media (voice notes, photos) so the
// pipeline and audit trail can reference them by URL instead of re-downloading
// from the Graph API, whose media links expire.
type MediaStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
