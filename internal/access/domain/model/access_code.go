package model

import (
	"fmt"
	"strings"
	"time"
)

// AccessCode is an admin-issued credential gating the questionnaire
type AccessCode struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NormalizeCode trims surrounding whitespace. Codes stay case-sensitive.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// NewAccessCode builds an active, never-activated code
func NewAccessCode(code string, now time.Time) *AccessCode {
	return &AccessCode{
		Code:      NormalizeCode(code),
		IsActive:  true,
		CreatedAt: now.UTC(),
	}
}

// CodeStatus is the derived state shown in admin listings
type CodeStatus string

const (
	CodeStatusAvailable CodeStatus = "available"
	CodeStatusActive    CodeStatus = "active"
	CodeStatusExpired   CodeStatus = "expired"
	CodeStatusDisabled  CodeStatus = "disabled"
)

// AccessCodeView is an AccessCode plus its derived status
type AccessCodeView struct {
	*AccessCode
	Status    CodeStatus `json:"status"`
	Remaining string     `json:"remaining,omitempty"`
	// RemainingSeconds is only set while the code is active
	RemainingSeconds int64 `json:"remaining_seconds,omitempty"`
}

// DeriveStatus derives the admin-facing status. The window here is measured from
// the code's activation and is informational only; sessions expire on their
// own first access.
func (a *AccessCode) DeriveStatus(now time.Time, window time.Duration) (CodeStatus, time.Duration) {
	if !a.IsActive {
		return CodeStatusDisabled, 0
	}
	if a.ActivatedAt == nil {
		return CodeStatusAvailable, 0
	}
	elapsed := now.Sub(*a.ActivatedAt)
	if elapsed > window {
		return CodeStatusExpired, 0
	}
	return CodeStatusActive, window - elapsed
}

// View builds the listing representation
func (a *AccessCode) View(now time.Time, window time.Duration) *AccessCodeView {
	status, remaining := a.DeriveStatus(now, window)
	v := &AccessCodeView{AccessCode: a, Status: status}
	if status == CodeStatusActive {
		v.Remaining = formatRemaining(remaining)
		v.RemainingSeconds = int64(remaining / time.Second)
	}
	return v
}

func formatRemaining(d time.Duration) string {
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d/time.Hour), int((d%time.Hour)/time.Minute))
}
