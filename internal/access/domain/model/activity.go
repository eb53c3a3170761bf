package model

import "time"

const tokenPrefixLen = 8

// Activity is one entry of the admin activity feed. Session tokens are
// never carried in full; see MaskToken.
type Activity struct {
	ID           string    `json:"id,omitempty"`
	Type         string    `json:"type"`
	Code         string    `json:"code,omitempty"`
	AccessCodeID string    `json:"access_code_id,omitempty"`
	TokenPrefix  string    `json:"token_prefix,omitempty"`
	Source       string    `json:"source"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MaskToken keeps enough of a session token to correlate feed entries
// without making it usable
func MaskToken(token string) string {
	runes := []rune(token)
	if len(runes) <= tokenPrefixLen {
		return string(runes[:len(runes)/2]) + "..."
	}
	return string(runes[:tokenPrefixLen]) + "..."
}
