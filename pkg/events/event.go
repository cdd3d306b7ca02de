package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_DUMPED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	EventSessionDumped = "SESSION_DUMPED"
)

// NewSessionDumped records a completed (or failed) advisory cycle for audit.
// The snapshot is the full session as it stood at cycle end.
func NewSessionDumped(userID, sessionID string, failed bool, snapshot map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type: EventSessionDumped,
		Data: map[string]interface{}{
			"user_id":    userID,
			"session_id": sessionID,
			"failed":     failed,
			"snapshot":   snapshot,
		},
		OccurredAt: time.Now(),
	}
}
