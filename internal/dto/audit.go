package dto

import "kisaanbot-be/internal/entity"

// SessionDumpMessage is the audit payload published when an advisory cycle
// ends, successfully or not.
type SessionDumpMessage struct {
	UserID    string         `json:"userId"`
	SessionID string         `json:"sessionId"`
	Failed    bool           `json:"failed"`
	Snapshot  entity.Session `json:"snapshot"`
}
