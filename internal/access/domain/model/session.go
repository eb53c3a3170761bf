package model

import "time"

// Session binds a client-generated token to an access code. FirstAccessAt
// anchors the validity window and never changes after creation.
type Session struct {
	SessionToken  string    `json:"session_token"`
	AccessCodeID  string    `json:"access_code_id"`
	FirstAccessAt time.Time `json:"first_access_at"`
	LastAccessAt  time.Time `json:"last_access_at"`
}

// NewSession creates a session whose window starts at now
func NewSession(token, accessCodeID string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		SessionToken:  token,
		AccessCodeID:  accessCodeID,
		FirstAccessAt: now,
		LastAccessAt:  now,
	}
}

// Expired reports whether more than ttl has passed since first access.
// Exactly ttl is still valid.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.FirstAccessAt) > ttl
}
