package usecase

import (
	"context"
	"fmt"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/shared/eventbus"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityUsecaseInterface exposes the admin activity feed
type ActivityUsecaseInterface interface {
	Recent(ctx context.Context, limit int64) ([]*model.Activity, error)
}

// ActivityUsecase records bus events into an ActivityStore
type ActivityUsecase struct {
	store repository.ActivityStore
	deps
}

// NewActivityUsecase creates the activity recorder. store may be nil, in
// which case events are dropped and Recent returns an empty feed.
func NewActivityUsecase(store repository.ActivityStore, opts ...Option) *ActivityUsecase {
	d := buildDeps(opts)
	d.log = d.log.WithComponent("activity")
	return &ActivityUsecase{store: store, deps: d}
}

// Attach subscribes the recorder to every event on bus
func (uc *ActivityUsecase) Attach(bus *eventbus.EventBus) {
	bus.Subscribe(eventbus.AllEvents, uc.HandleEvent)
}

// HandleEvent is an eventbus.Handler
func (uc *ActivityUsecase) HandleEvent(ctx context.Context, event eventbus.Event) error {
	if uc.store == nil {
		return nil
	}
	activity, err := ActivityFromEvent(event)
	if err != nil {
		uc.log.Warnf("Dropping event %s: %v", event.Type(), err)
		return nil
	}
	return uc.store.Append(ctx, activity)
}

// Recent returns the newest activities first
func (uc *ActivityUsecase) Recent(ctx context.Context, limit int64) ([]*model.Activity, error) {
	if uc.store == nil {
		return []*model.Activity{}, nil
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	activities, err := uc.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	return activities, nil
}

// ActivityFromEvent extracts the activity carried by a bus event
func ActivityFromEvent(event eventbus.Event) (*model.Activity, error) {
	switch data := event.Data().(type) {
	case *model.Activity:
		copied := *data
		copied.Type = event.Type()
		return &copied, nil
	default:
		return nil, fmt.Errorf("unexpected event payload %T", event.Data())
	}
}

var _ ActivityUsecaseInterface = (*ActivityUsecase)(nil)
