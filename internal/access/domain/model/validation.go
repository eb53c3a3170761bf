package model

import "time"

// Reason explains a negative validation outcome
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonCodeNotFound   Reason = "CodeNotFound"
	ReasonCodeDisabled   Reason = "CodeDisabled"
	ReasonSessionExpired Reason = "SessionExpired"
)

// Default user-facing messages per reason
var reasonMessages = map[Reason]string{
	ReasonCodeNotFound:   "访问码无效",
	ReasonCodeDisabled:   "此访问码尚未激活或已被禁用",
	ReasonSessionExpired: "您的会话已过期（超过24小时）",
}

// Message returns the user-facing text for the reason
func (r Reason) Message() string {
	return reasonMessages[r]
}

// ValidationResult is the domain outcome of a validate call. Invalid results
// are expected outcomes, not errors.
type ValidationResult struct {
	Valid         bool
	Reason        Reason
	FirstAccessAt *time.Time
	// NewSession is set when this call created the session
	NewSession bool
}

// Message is the user-facing text for an invalid result
func (v *ValidationResult) Message() string {
	return v.Reason.Message()
}

// Granted builds a valid result
func Granted(firstAccessAt time.Time, created bool) *ValidationResult {
	t := firstAccessAt.UTC()
	return &ValidationResult{Valid: true, FirstAccessAt: &t, NewSession: created}
}

// Denied builds an invalid result for reason
func Denied(reason Reason) *ValidationResult {
	return &ValidationResult{Valid: false, Reason: reason}
}
