package contract

import (
	"context"

	"kisaanbot-be/internal/entity"
)

// SessionRepository stores one live dialog session per user. Every access
// slides the TTL so a session dies only after real inactivity.
type SessionRepository interface {
	// Get returns the user's session, or nil when none exists.
	Get(ctx context.Context, userID string) (*entity.Session, error)
	// Save writes the full session and refreshes its TTL.
	Save(ctx context.Context, session *entity.Session) error
	// Update applies a patch to the stored session and returns the result.
	Update(ctx context.Context, userID string, patch entity.SessionPatch) (*entity.Session, error)
	// Delete ends the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error
}
