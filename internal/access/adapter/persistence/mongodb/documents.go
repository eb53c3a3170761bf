package mongodb

import (
	"time"

	"scl90-gate/internal/access/domain/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	accessCodesCollection = "access_codes"
	sessionsCollection    = "user_sessions"
)

type accessCodeDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Code        string             `bson:"code"`
	IsActive    bool               `bson:"is_active"`
	ActivatedAt *time.Time         `bson:"activated_at"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d *accessCodeDocument) toModel() *model.AccessCode {
	ac := &model.AccessCode{
		ID:        d.ID.Hex(),
		Code:      d.Code,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ActivatedAt != nil {
		at := d.ActivatedAt.UTC()
		ac.ActivatedAt = &at
	}
	return ac
}

type sessionDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	SessionToken  string             `bson:"session_token"`
	AccessCodeID  string             `bson:"access_code_id"`
	FirstAccessAt time.Time          `bson:"first_access_at"`
	LastAccessAt  time.Time          `bson:"last_access_at"`
}

func (d *sessionDocument) toModel() *model.Session {
	return &model.Session{
		SessionToken:  d.SessionToken,
		AccessCodeID:  d.AccessCodeID,
		FirstAccessAt: d.FirstAccessAt.UTC(),
		LastAccessAt:  d.LastAccessAt.UTC(),
	}
}
