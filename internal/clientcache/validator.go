package clientcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrUnavailable marks failures worth retrying later
	ErrUnavailable = errors.New("validation service unavailable")
	// ErrRejected marks a request the server refused as malformed
	ErrRejected = errors.New("validation request rejected")
)

// Verdict is the authoritative answer for a code and session token
type Verdict struct {
	Valid         bool
	FirstAccessAt time.Time
	Message       string
}

// Validator asks the authorization service about a code
type Validator interface {
	Validate(ctx context.Context, code, sessionToken string) (*Verdict, error)
}

type validateRequest struct {
	Code         string `json:"code"`
	SessionToken string `json:"sessionToken"`
}

type validateResponse struct {
	Valid         bool   `json:"valid"`
	FirstAccessAt string `json:"firstAccessAt"`
	Message       string `json:"message"`
	Error         string `json:"error"`
}

// HTTPValidator calls POST /api/v1/access/validate
type HTTPValidator struct {
	url     string
	timeout time.Duration
}

// NewHTTPValidator creates a validator for url
func NewHTTPValidator(url string, timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{url: url, timeout: timeout}
}

// Validate posts the code and token. The context deadline, when sooner,
// overrides the configured timeout.
func (v *HTTPValidator) Validate(ctx context.Context, code, sessionToken string) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(v.url)
	agent.JSON(validateRequest{Code: code, SessionToken: sessionToken})
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, fmt.Errorf("invalid validate url: %w", err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
	}

	var resp validateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unexpected response (status %d)", ErrUnavailable, status)
	}

	switch {
	case status == fiber.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	case status >= fiber.StatusInternalServerError, status == fiber.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Error)
	case status != fiber.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}

	if !resp.Valid {
		return &Verdict{Valid: false, Message: resp.Message}, nil
	}
	firstAccessAt, err := time.Parse(time.RFC3339Nano, resp.FirstAccessAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad firstAccessAt %q", ErrUnavailable, resp.FirstAccessAt)
	}
	return &Verdict{Valid: true, FirstAccessAt: firstAccessAt.UTC()}, nil
}

var _ Validator = (*HTTPValidator)(nil)
