package domain

import "time"

// AuditLog is one security event.
type AuditLog struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
