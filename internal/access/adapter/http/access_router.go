package http

import (
	"errors"

	"scl90-gate/internal/access/usecase"
	sharederrors "scl90-gate/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// TimestampLayout renders instants as UTC ISO-8601 with milliseconds
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ValidateRequest is the body of POST /access/validate
type ValidateRequest struct {
	Code         string `json:"code"`
	SessionToken string `json:"sessionToken"`
}

// ValidateResponse is returned for every decided validation
type ValidateResponse struct {
	Valid         bool   `json:"valid"`
	FirstAccessAt string `json:"firstAccessAt,omitempty"`
	Message       string `json:"message,omitempty"`
}

// AccessHTTPHandler serves the public validation endpoint
type AccessHTTPHandler struct {
	usecase usecase.ValidateUsecaseInterface
}

// NewAccessHTTPHandler creates a new handler
func NewAccessHTTPHandler(uc usecase.ValidateUsecaseInterface) *AccessHTTPHandler {
	return &AccessHTTPHandler{usecase: uc}
}

// RegisterRoutes mounts the validate endpoint on router
func (h *AccessHTTPHandler) RegisterRoutes(router fiber.Router, middleware ...fiber.Handler) {
	handlers := make([]fiber.Handler, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, h.Validate)
	router.Post("/access/validate", handlers...)
	router.All("/access/validate", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"error": "Method not allowed",
		})
	})
}

// Validate handles POST /access/validate
func (h *AccessHTTPHandler) Validate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": usecase.ErrMissingFields.Message,
		})
	}

	result, err := h.usecase.Validate(c.UserContext(), req.Code, req.SessionToken)
	if err != nil {
		if errors.Is(err, usecase.ErrMissingFields) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": usecase.ErrMissingFields.Message,
			})
		}
		message := "Internal server error"
		if appErr, ok := sharederrors.AsAppError(err); ok {
			message = appErr.Message
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": message,
			"valid": false,
		})
	}

	if !result.Valid {
		return c.JSON(ValidateResponse{Valid: false, Message: result.Message()})
	}
	return c.JSON(ValidateResponse{
		Valid:         true,
		FirstAccessAt: result.FirstAccessAt.UTC().Format(TimestampLayout),
	})
}
