package repository

import (
	"context"

	"scl90-gate/internal/access/domain/model"
)

// ActivityStore persists the admin activity feed
type ActivityStore interface {
	Append(ctx context.Context, activity *model.Activity) error
	Recent(ctx context.Context, limit int64) ([]*model.Activity, error)
}
