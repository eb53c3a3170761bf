package repository

import (
	"context"
	"errors"
	"time"

	"scl90-gate/internal/access/domain/model"
)

// Store-level outcomes. Anything else returned by a repository is an
// infrastructure failure.
var (
	ErrAccessCodeNotFound = errors.New("access code not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session token already bound")
	ErrDuplicateCode      = errors.New("access code already exists")
)

// AccessRepository is the store contract for access codes and sessions
type AccessRepository interface {
	// Validation path
	FindAccessCodeByCode(ctx context.Context, code string) (*model.AccessCode, error)
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
	// InsertSessionIfAbsent must be atomic per token and return
	// ErrSessionExists when another writer already created it.
	InsertSessionIfAbsent(ctx context.Context, session *model.Session) error
	// SetActivatedAtIfNull reports whether this call performed the write.
	SetActivatedAtIfNull(ctx context.Context, accessCodeID string, at time.Time) (bool, error)
	TouchLastAccess(ctx context.Context, token string, at time.Time) error

	// Admin registry
	ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error)
	CreateAccessCode(ctx context.Context, code *model.AccessCode) error
	ResetAccessCode(ctx context.Context, code string) (*model.AccessCode, error)
	SetAccessCodeActive(ctx context.Context, code string, active bool) (*model.AccessCode, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
