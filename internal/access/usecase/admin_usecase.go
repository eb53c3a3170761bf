package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	sharederrors "scl90-gate/internal/shared/errors"
	"scl90-gate/internal/shared/eventbus"
	"scl90-gate/internal/shared/utils"
)

const adminComponent = "admin"

var (
	ErrInvalidCode   = sharederrors.NewValidationError("code is required").WithCode("INVALID_CODE").WithComponent(adminComponent)
	ErrDuplicateCode = sharederrors.NewConflictError("duplicate").WithCode("DUPLICATE_CODE").WithComponent(adminComponent)
	ErrCodeNotFound  = sharederrors.NewNotFoundError("access code").WithCode("CODE_NOT_FOUND").WithComponent(adminComponent)
	ErrUnauthorized  = sharederrors.NewAuthenticationError("Unauthorized").WithComponent(adminComponent)
)

// AdminUsecaseInterface is the secret-gated access code registry
type AdminUsecaseInterface interface {
	List(ctx context.Context) ([]*model.AccessCodeView, error)
	Create(ctx context.Context, code string) (*model.AccessCode, error)
	Reset(ctx context.Context, code string) (*model.AccessCode, error)
	SetActive(ctx context.Context, code string, active bool) (*model.AccessCode, error)

	// Authenticate compares the presented secret for exact equality
	Authenticate(secret string) bool
	Login(ctx context.Context, secret string) (string, time.Time, error)
	VerifyToken(token string) (*repository.AdminClaims, error)
}

// AdminUsecase implements AdminUsecaseInterface
type AdminUsecase struct {
	repo         repository.AccessRepository
	tokens       repository.AdminTokenService
	secret       []byte
	window       time.Duration
	storeTimeout time.Duration
	deps
}

// NewAdminUsecase creates the registry. The admin secret comes from cfg.
func NewAdminUsecase(repo repository.AccessRepository, tokens repository.AdminTokenService, cfg *config.Config, opts ...Option) *AdminUsecase {
	d := buildDeps(opts)
	d.log = d.log.WithComponent(adminComponent)
	return &AdminUsecase{
		repo:         repo,
		tokens:       tokens,
		secret:       []byte(cfg.AdminSecret),
		window:       cfg.SessionTTL,
		storeTimeout: cfg.StoreTimeout,
		deps:         d,
	}
}

// List returns every code, newest first, with its derived status
func (uc *AdminUsecase) List(ctx context.Context) ([]*model.AccessCodeView, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	codes, err := uc.repo.ListAccessCodes(storeCtx)
	if err != nil {
		return nil, uc.storeError("failed to list access codes", err)
	}

	now := uc.now()
	views := make([]*model.AccessCodeView, 0, len(codes))
	for _, c := range codes {
		views = append(views, c.View(now, uc.window))
	}
	return views, nil
}

// Create registers a new active code
func (uc *AdminUsecase) Create(ctx context.Context, code string) (*model.AccessCode, error) {
	ctx = utils.WithOperation(ctx, "create_code")
	accessCode := model.NewAccessCode(code, uc.timestamp())
	if accessCode.Code == "" {
		return nil, ErrInvalidCode
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	if err := uc.repo.CreateAccessCode(storeCtx, accessCode); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, uc.storeError("failed to create access code", err)
	}

	uc.log.WithContext(ctx).Infof("Access code created: %s", accessCode.Code)
	uc.publishCode(ctx, eventbus.EventTypeAccessCodeCreated, accessCode)
	return accessCode, nil
}

// Reset makes a code active and unactivated again, whatever its state
func (uc *AdminUsecase) Reset(ctx context.Context, code string) (*model.AccessCode, error) {
	ctx = utils.WithOperation(ctx, "reset_code")
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	accessCode, err := uc.repo.ResetAccessCode(storeCtx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAccessCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, uc.storeError("failed to reset access code", err)
	}

	uc.log.WithContext(ctx).Infof("Access code reset: %s", code)
	uc.publishCode(ctx, eventbus.EventTypeAccessCodeReset, accessCode)
	return accessCode, nil
}

// SetActive disables or re-enables a code without touching its activation
func (uc *AdminUsecase) SetActive(ctx context.Context, code string, active bool) (*model.AccessCode, error) {
	ctx = utils.WithOperation(ctx, "set_active")
	code = model.NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	accessCode, err := uc.repo.SetAccessCodeActive(storeCtx, code, active)
	if err != nil {
		if errors.Is(err, repository.ErrAccessCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, uc.storeError("failed to update access code", err)
	}

	eventType := eventbus.EventTypeAccessCodeDisabled
	if active {
		eventType = eventbus.EventTypeAccessCodeEnabled
	}
	uc.publishCode(ctx, eventType, accessCode)
	return accessCode, nil
}

// Authenticate reports whether secret equals the configured admin secret
func (uc *AdminUsecase) Authenticate(secret string) bool {
	if secret == "" || len(uc.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), uc.secret) == 1
}

// Login exchanges the shared secret for an admin token
func (uc *AdminUsecase) Login(ctx context.Context, secret string) (string, time.Time, error) {
	if !uc.Authenticate(secret) {
		uc.log.WithContext(ctx).Warn("Rejected admin login")
		return "", time.Time{}, ErrUnauthorized
	}
	token, expiresAt, err := uc.tokens.Issue(adminComponent)
	if err != nil {
		return "", time.Time{}, sharederrors.NewInternalError("failed to issue admin token").WithCause(err)
	}
	return token, expiresAt, nil
}

// VerifyToken validates an admin token
func (uc *AdminUsecase) VerifyToken(token string) (*repository.AdminClaims, error) {
	claims, err := uc.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func (uc *AdminUsecase) publishCode(ctx context.Context, eventType string, accessCode *model.AccessCode) {
	uc.publish(ctx, &model.Activity{
		Type:         eventType,
		Code:         accessCode.Code,
		AccessCodeID: accessCode.ID,
		Source:       adminComponent,
		OccurredAt:   uc.timestamp(),
	})
}

func (uc *AdminUsecase) storeError(message string, cause error) error {
	uc.log.Errorf("%s: %v", message, cause)
	return sharederrors.NewInfrastructureError(message).WithCause(cause).WithComponent(adminComponent)
}

var _ AdminUsecaseInterface = (*AdminUsecase)(nil)
