package sqlstore

import (
	"time"

	"scl90-gate/internal/access/domain/model"
)

// tableAccessCode has no column defaults: GORM skips zero values of fields
// that declare one, which would turn is_active=false into true on insert.
type tableAccessCode struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	Code        string     `gorm:"type:varchar(255);uniqueIndex:uniq_access_codes_code;not null"`
	IsActive    bool       `gorm:"not null"`
	ActivatedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"index:idx_access_codes_created_at;not null"`
}

func (tableAccessCode) TableName() string { return "access_codes" }

func (t *tableAccessCode) toModel() *model.AccessCode {
	ac := &model.AccessCode{
		ID:        t.ID,
		Code:      t.Code,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.UTC(),
	}
	if t.ActivatedAt != nil {
		at := t.ActivatedAt.UTC()
		ac.ActivatedAt = &at
	}
	return ac
}

type tableSession struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	SessionToken  string    `gorm:"type:varchar(255);uniqueIndex:uniq_user_sessions_token;not null"`
	AccessCodeID  string    `gorm:"type:varchar(36);index;not null"`
	FirstAccessAt time.Time `gorm:"not null"`
	LastAccessAt  time.Time `gorm:"not null"`
}

func (tableSession) TableName() string { return "user_sessions" }

func (t *tableSession) toModel() *model.Session {
	return &model.Session{
		SessionToken:  t.SessionToken,
		AccessCodeID:  t.AccessCodeID,
		FirstAccessAt: t.FirstAccessAt.UTC(),
		LastAccessAt:  t.LastAccessAt.UTC(),
	}
}
