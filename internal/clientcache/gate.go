package clientcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scl90-gate/internal/shared/logger"

	"github.com/google/uuid"
)

// Fallback texts when the server gives none
const (
	MessageRejected    = "验证失败"
	MessageUnavailable = "系统错误，请稍后重试。"
)

// ErrCodeRequired is returned when nothing is cached and no code was given
var ErrCodeRequired = errors.New("access code required")

// DeniedError carries the server's reason for an invalid code
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string {
	return e.Message
}

// Authorization is a granted questionnaire window
type Authorization struct {
	SessionToken  string
	AccessCode    string
	FirstAccessAt time.Time
	ExpiresAt     time.Time
	// Cached is set when no network call was made
	Cached bool
}

// Remaining returns the time left in the window at now
func (a *Authorization) Remaining(now time.Time) time.Duration {
	if d := a.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Gate answers "may this client take the questionnaire" from local state
// first and the validator second.
type Gate struct {
	store     StateStore
	validator Validator
	ttl       time.Duration
	now       func() time.Time
	newToken  func() string
	log       logger.Logger
}

// GateOption customizes a Gate
type GateOption func(*Gate)

// WithClock overrides time.Now
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithTokenGenerator overrides session token generation
func WithTokenGenerator(fn func() string) GateOption {
	return func(g *Gate) { g.newToken = fn }
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) GateOption {
	return func(g *Gate) { g.log = log }
}

// NewGate creates a gate with a window of ttl
func NewGate(store StateStore, validator Validator, ttl time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		store:     store,
		validator: validator,
		ttl:       ttl,
		now:       time.Now,
		newToken:  uuid.NewString,
		log:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize returns the cached window when it is still open, otherwise
// validates code with the server and caches the result.
func (g *Gate) Authorize(ctx context.Context, code string) (*Authorization, error) {
	state, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	now := g.now()
	if state.AccessCode != "" && state.FirstAccessAt != nil {
		if now.Sub(*state.FirstAccessAt) <= g.ttl {
			return g.authorization(state, true), nil
		}
		g.log.Infof("Cached access for %s expired", state.AccessCode)
		state.ClearAccess()
		if err := g.store.Save(state); err != nil {
			return nil, err
		}
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	if state.SessionToken == "" {
		state.SessionToken = g.newToken()
		if err := g.store.Save(state); err != nil {
			return nil, err
		}
	}

	verdict, err := g.validator.Validate(ctx, code, state.SessionToken)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		message := verdict.Message
		if message == "" {
			message = MessageRejected
		}
		return nil, &DeniedError{Message: message}
	}

	firstAccessAt := verdict.FirstAccessAt.UTC()
	state.AccessCode = code
	state.FirstAccessAt = &firstAccessAt
	if err := g.store.Save(state); err != nil {
		return nil, fmt.Errorf("access granted but not cached: %w", err)
	}
	return g.authorization(state, false), nil
}

// Forget clears the cached code. The session token survives so the server
// still recognises this client.
func (g *Gate) Forget() error {
	state, err := g.store.Load()
	if err != nil {
		return err
	}
	state.ClearAccess()
	return g.store.Save(state)
}

func (g *Gate) authorization(state *State, cached bool) *Authorization {
	return &Authorization{
		SessionToken:  state.SessionToken,
		AccessCode:    state.AccessCode,
		FirstAccessAt: *state.FirstAccessAt,
		ExpiresAt:     state.FirstAccessAt.Add(g.ttl),
		Cached:        cached,
	}
}
