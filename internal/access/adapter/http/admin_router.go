package http

import (
	"errors"

	"scl90-gate/internal/access/domain/model"
	"scl90-gate/internal/access/usecase"
	sharederrors "scl90-gate/internal/shared/errors"

	"github.com/gofiber/fiber/v2"
)

// CodeRequest is the body of the code-addressed admin actions
type CodeRequest struct {
	Code string `json:"code"`
}

// LoginRequest is the body of POST /admin/login
type LoginRequest struct {
	Password string `json:"password"`
}

// AdminHTTPHandler serves the admin registry
type AdminHTTPHandler struct {
	admin    usecase.AdminUsecaseInterface
	activity usecase.ActivityUsecaseInterface
	feed     *ActivityFeed
}

// NewAdminHTTPHandler creates the admin handler. feed may be nil, in which
// case /admin/events is not mounted.
func NewAdminHTTPHandler(admin usecase.AdminUsecaseInterface, activity usecase.ActivityUsecaseInterface, feed *ActivityFeed) *AdminHTTPHandler {
	return &AdminHTTPHandler{
		admin:    admin,
		activity: activity,
		feed:     feed,
	}
}

// RegisterRoutes mounts the admin group on router
func (h *AdminHTTPHandler) RegisterRoutes(router fiber.Router, middleware *AccessMiddleware) {
	// Login exchanges the secret itself, so it sits outside the gate
	router.Post("/admin/login", h.Login)

	admin := router.Group("/admin", middleware.AdminAuth())
	admin.Get("/list", h.List)
	admin.Post("/create", h.Create)
	admin.Post("/reset", h.Reset)
	admin.Post("/disable", h.Disable)
	admin.Post("/enable", h.Enable)
	admin.Get("/activity", h.Activity)
	if h.feed != nil {
		admin.Get("/events", RequireUpgrade(), h.feed.Handler())
	}
	admin.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	})
}

// List handles GET /admin/list
func (h *AdminHTTPHandler) List(c *fiber.Ctx) error {
	views, err := h.admin.List(c.UserContext())
	if err != nil {
		return writeAdminError(c, err)
	}
	return c.JSON(fiber.Map{"data": views})
}

// Create handles POST /admin/create
func (h *AdminHTTPHandler) Create(c *fiber.Ctx) error {
	code, err := parseCode(c)
	if err != nil {
		return writeAdminError(c, err)
	}
	created, err := h.admin.Create(c.UserContext(), code)
	if err != nil {
		return writeAdminError(c, err)
	}
	return c.JSON(fiber.Map{"data": []*model.AccessCode{created}})
}

// Reset handles POST /admin/reset
func (h *AdminHTTPHandler) Reset(c *fiber.Ctx) error {
	code, err := parseCode(c)
	if err != nil {
		return writeAdminError(c, err)
	}
	if _, err := h.admin.Reset(c.UserContext(), code); err != nil {
		return writeAdminError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Disable handles POST /admin/disable
func (h *AdminHTTPHandler) Disable(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

// Enable handles POST /admin/enable
func (h *AdminHTTPHandler) Enable(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *AdminHTTPHandler) setActive(c *fiber.Ctx, active bool) error {
	code, err := parseCode(c)
	if err != nil {
		return writeAdminError(c, err)
	}
	updated, err := h.admin.SetActive(c.UserContext(), code, active)
	if err != nil {
		return writeAdminError(c, err)
	}
	return c.JSON(fiber.Map{"data": []*model.AccessCode{updated}})
}

// Login handles POST /admin/login
func (h *AdminHTTPHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	token, expiresAt, err := h.admin.Login(c.UserContext(), req.Password)
	if err != nil {
		return writeAdminError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(TimestampLayout),
	})
}

// Activity handles GET /admin/activity?limit=N
func (h *AdminHTTPHandler) Activity(c *fiber.Ctx) error {
	activities, err := h.activity.Recent(c.UserContext(), int64(c.QueryInt("limit", 0)))
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"data": activities})
}

func parseCode(c *fiber.Ctx) (string, error) {
	var req CodeRequest
	if err := c.BodyParser(&req); err != nil {
		return "", sharederrors.NewValidationError("Invalid request body").WithCode("INVALID_BODY")
	}
	return req.Code, nil
}

// writeAdminError renders usecase errors as {error, code}
func writeAdminError(c *fiber.Ctx, err error) error {
	var appErr *sharederrors.AppError
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	body := fiber.Map{"error": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	return c.Status(appErr.HTTPCode).JSON(body)
}
