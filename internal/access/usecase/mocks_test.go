package usecase_test

import (
	"context"
	"time"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/shared/eventbus"

	"github.com/stretchr/testify/mock"
)

type mockAccessRepository struct {
	mock.Mock
}

func (m *mockAccessRepository) FindAccessCodeByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessRepository) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockAccessRepository) InsertSessionIfAbsent(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAccessRepository) SetActivatedAtIfNull(ctx context.Context, accessCodeID string, at time.Time) (bool, error) {
	args := m.Called(ctx, accessCodeID, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessRepository) TouchLastAccess(ctx context.Context, token string, at time.Time) error {
	args := m.Called(ctx, token, at)
	return args.Error(0)
}

func (m *mockAccessRepository) ListAccessCodes(ctx context.Context) ([]*model.AccessCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccessCode), args.Error(1)
}

func (m *mockAccessRepository) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockAccessRepository) ResetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessRepository) SetAccessCodeActive(ctx context.Context, code string, active bool) (*model.AccessCode, error) {
	args := m.Called(ctx, code, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAccessRepository) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ repository.AccessRepository = (*mockAccessRepository)(nil)

type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) Issue(subject string) (string, time.Time, error) {
	args := m.Called(subject)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *mockTokenService) Verify(token string) (*repository.AdminClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AdminClaims), args.Error(1)
}

// recordingPublisher captures events synchronously
type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event eventbus.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishAndForget(ctx context.Context, event eventbus.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

type mockActivityStore struct {
	mock.Mock
}

func (m *mockActivityStore) Append(ctx context.Context, activity *model.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *mockActivityStore) Recent(ctx context.Context, limit int64) ([]*model.Activity, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Activity), args.Error(1)
}
