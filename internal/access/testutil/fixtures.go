package testutil

import (
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/model"
)

// Fixed instants used across access tests
var (
	BaseTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
)

// TestConfig returns a config suitable for in-process tests
func TestConfig() *config.Config {
	return &config.Config{
		StoreDriver:      config.StoreDriverMemory,
		StoreTimeout:     2 * time.Second,
		SessionTTL:       24 * time.Hour,
		AdminSecret:      "admin-secret",
		AdminHeader:      "X-Admin-Password",
		AdminTokenSecret: "admin-token-signing-key",
		AdminTokenIssuer: "scl90-gate-test",
		AdminTokenTTL:    time.Hour,
		RateLimitMax:     0,
		RateLimitWindow:  time.Minute,
	}
}

// NewCode builds an active, unactivated code created at BaseTime
func NewCode(code string) *model.AccessCode {
	return model.NewAccessCode(code, BaseTime)
}

// ActivatedCode builds a code activated at activatedAt
func ActivatedCode(code string, activatedAt time.Time) *model.AccessCode {
	c := NewCode(code)
	at := activatedAt.UTC()
	c.ActivatedAt = &at
	return c
}

// DisabledCode builds an inactive code
func DisabledCode(code string) *model.AccessCode {
	c := NewCode(code)
	c.IsActive = false
	return c
}

// Clock is a settable clock for usecase tests
type Clock struct {
	Current time.Time
}

// NewClock starts at t
func NewClock(t time.Time) *Clock { return &Clock{Current: t} }

// Now returns the current fake time
func (c *Clock) Now() time.Time { return c.Current }

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }
