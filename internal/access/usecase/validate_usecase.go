package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/domain/repository"
	sharederrors "scl90-gate/internal/shared/errors"
	"scl90-gate/internal/shared/eventbus"
	"scl90-gate/internal/shared/logger"
	"scl90-gate/internal/shared/metrics"
	"scl90-gate/internal/shared/utils"
)

const componentName = "access"

var (
	ErrMissingFields = sharederrors.NewValidationError("Missing required fields").WithCode("MISSING_FIELDS").WithComponent(componentName)
)

// ValidateUsecaseInterface is the access-code validation protocol
type ValidateUsecaseInterface interface {
	Validate(ctx context.Context, code, sessionToken string) (*model.ValidationResult, error)
}

// Option customizes a usecase at construction time
type Option func(*deps)

type deps struct {
	now     func() time.Time
	bus     eventbus.Publisher
	metrics *metrics.Metrics
	log     logger.Logger
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithPublisher publishes domain events on bus
func WithPublisher(bus eventbus.Publisher) Option {
	return func(d *deps) { d.bus = bus }
}

// WithMetrics records outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(d *deps) { d.log = log }
}

func buildDeps(opts []Option) deps {
	d := deps{now: time.Now, log: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// timestamp returns the current time at the resolution every store keeps, so
// that a freshly returned firstAccessAt equals the one read back later.
func (d deps) timestamp() time.Time {
	return d.now().UTC().Truncate(time.Millisecond)
}

func (d deps) publish(ctx context.Context, activity *model.Activity) {
	if d.bus == nil {
		return
	}
	d.bus.PublishAndForget(ctx, eventbus.NewBasicEvent(activity.Type, activity, activity.Source))
}

// ValidateUsecase implements the access-code validation protocol.
type ValidateUsecase struct {
	repo         repository.AccessRepository
	sessionTTL   time.Duration
	storeTimeout time.Duration
	deps
}

// NewValidateUsecase creates a new instance of ValidateUsecase.
func NewValidateUsecase(repo repository.AccessRepository, cfg *config.Config, opts ...Option) *ValidateUsecase {
	d := buildDeps(opts)
	d.log = d.log.WithComponent(componentName)
	return &ValidateUsecase{
		repo:         repo,
		sessionTTL:   cfg.SessionTTL,
		storeTimeout: cfg.StoreTimeout,
		deps:         d,
	}
}

// Validate checks code and binds sessionToken to it on first use.
//
// An existing session is judged on its own window only: the supplied code is
// not compared with the code the session was created against.
func (uc *ValidateUsecase) Validate(ctx context.Context, code, sessionToken string) (*model.ValidationResult, error) {
	ctx = utils.WithOperation(ctx, "validate")
	code = model.NormalizeCode(code)
	if code == "" || strings.TrimSpace(sessionToken) == "" {
		return nil, ErrMissingFields
	}

	accessCode, err := uc.findAccessCode(ctx, code)
	if errors.Is(err, repository.ErrAccessCodeNotFound) {
		return uc.deny(model.ReasonCodeNotFound), nil
	}
	if err != nil {
		return nil, uc.infraError("failed to look up access code", err)
	}
	if !accessCode.IsActive {
		return uc.deny(model.ReasonCodeDisabled), nil
	}

	session, err := uc.findSession(ctx, sessionToken)
	switch {
	case err == nil:
		return uc.revalidate(ctx, session)
	case !errors.Is(err, repository.ErrSessionNotFound):
		return nil, uc.infraError("failed to look up session", err)
	}

	return uc.bind(ctx, accessCode, sessionToken)
}

// bind creates the session for a token seen for the first time
func (uc *ValidateUsecase) bind(ctx context.Context, accessCode *model.AccessCode, sessionToken string) (*model.ValidationResult, error) {
	now := uc.timestamp()
	session := model.NewSession(sessionToken, accessCode.ID, now)

	err := uc.insertSession(ctx, session)
	if errors.Is(err, repository.ErrSessionExists) {
		// A concurrent request with the same token won the insert.
		if uc.metrics != nil {
			uc.metrics.InsertConflicts.Inc()
		}
		existing, findErr := uc.findSession(ctx, sessionToken)
		if findErr != nil {
			return nil, uc.infraError("failed to re-read session after insert conflict", findErr)
		}
		return uc.revalidate(ctx, existing)
	}
	if err != nil {
		return nil, uc.infraError("failed to create session", err)
	}

	if uc.metrics != nil {
		uc.metrics.SessionsCreated.Inc()
	}
	uc.publish(ctx, &model.Activity{
		Type:         eventbus.EventTypeSessionCreated,
		Code:         accessCode.Code,
		AccessCodeID: accessCode.ID,
		TokenPrefix:  model.MaskToken(sessionToken),
		Source:       componentName,
		OccurredAt:   now,
	})

	if accessCode.ActivatedAt == nil {
		uc.activate(ctx, accessCode, now)
	}

	uc.metrics.RecordValidation(metrics.OutcomeValid)
	return model.Granted(now, true), nil
}

// activate stamps the code's first use. The session is already bound at this
// point and its validity does not depend on activatedAt, so a failure here is
// logged rather than returned.
func (uc *ValidateUsecase) activate(ctx context.Context, accessCode *model.AccessCode, now time.Time) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	start := time.Now()
	wrote, err := uc.repo.SetActivatedAtIfNull(storeCtx, accessCode.ID, now)
	uc.metrics.ObserveStore("set_activated_at", start)
	if err != nil {
		uc.log.WithContext(ctx).WithFields(map[string]interface{}{
			"access_code_id": accessCode.ID,
			"error":          err.Error(),
		}).Warn("Failed to record access code activation")
		return
	}
	if !wrote {
		return
	}

	if uc.metrics != nil {
		uc.metrics.ActivationsTotal.Inc()
	}
	uc.publish(ctx, &model.Activity{
		Type:         eventbus.EventTypeAccessCodeActivated,
		Code:         accessCode.Code,
		AccessCodeID: accessCode.ID,
		Source:       componentName,
		OccurredAt:   now,
	})
}

// revalidate applies the window check to an already bound session
func (uc *ValidateUsecase) revalidate(ctx context.Context, session *model.Session) (*model.ValidationResult, error) {
	now := uc.timestamp()
	if session.Expired(now, uc.sessionTTL) {
		uc.publish(ctx, &model.Activity{
			Type:         eventbus.EventTypeSessionExpired,
			AccessCodeID: session.AccessCodeID,
			TokenPrefix:  model.MaskToken(session.SessionToken),
			Source:       componentName,
			OccurredAt:   now,
		})
		return uc.deny(model.ReasonSessionExpired), nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()

	start := time.Now()
	err := uc.repo.TouchLastAccess(storeCtx, session.SessionToken, now)
	uc.metrics.ObserveStore("touch_last_access", start)
	if err != nil {
		return nil, uc.infraError("failed to update session", err)
	}

	uc.metrics.RecordValidation(metrics.OutcomeValid)
	return model.Granted(session.FirstAccessAt, false), nil
}

func (uc *ValidateUsecase) findAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	defer uc.metrics.ObserveStore("find_access_code", time.Now())
	return uc.repo.FindAccessCodeByCode(storeCtx, code)
}

func (uc *ValidateUsecase) findSession(ctx context.Context, token string) (*model.Session, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	defer uc.metrics.ObserveStore("find_session", time.Now())
	return uc.repo.FindSessionByToken(storeCtx, token)
}

func (uc *ValidateUsecase) insertSession(ctx context.Context, session *model.Session) error {
	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	defer uc.metrics.ObserveStore("insert_session", time.Now())
	return uc.repo.InsertSessionIfAbsent(storeCtx, session)
}

func (uc *ValidateUsecase) deny(reason model.Reason) *model.ValidationResult {
	switch reason {
	case model.ReasonCodeNotFound:
		uc.metrics.RecordValidation(metrics.OutcomeCodeNotFound)
	case model.ReasonCodeDisabled:
		uc.metrics.RecordValidation(metrics.OutcomeCodeDisabled)
	case model.ReasonSessionExpired:
		uc.metrics.RecordValidation(metrics.OutcomeSessionExpired)
	}
	return model.Denied(reason)
}

func (uc *ValidateUsecase) infraError(message string, cause error) error {
	uc.metrics.RecordValidation(metrics.OutcomeError)
	uc.log.Errorf("%s: %v", message, cause)
	return sharederrors.NewInfrastructureError(message).WithCause(cause).WithComponent(componentName)
}

var _ ValidateUsecaseInterface = (*ValidateUsecase)(nil)
