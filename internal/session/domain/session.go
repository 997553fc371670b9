package domain

import "time"

// Session is a logged-in identity. Created on successful authentication; destroyed on logout or expiry.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Role       string    `json:"role"`
	IPAddress  string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
