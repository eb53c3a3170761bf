package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scl90-gate/internal/access/config"
	"scl90-gate/internal/di"
	apperrors "scl90-gate/internal/shared/errors"
	"scl90-gate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		StoreDriver:   config.StoreDriverMemory,
		StoreTimeout:  time.Second,
		SessionTTL:    24 * time.Hour,
		AdminSecret:   "s3cret",
		AdminTokenTTL: time.Hour,
	}
	require.NoError(t, cfg.Validate())

	container := di.NewContainer(logger.NewNopLogger(), zap.NewNop())
	require.NoError(t, container.InitializeAccess(context.Background(), cfg))
	t.Cleanup(func() { _ = container.Close() })

	return newApp(container, &ServerConfig{CORSOrigins: "*"}, logger.NewNopLogger(), zap.NewNop())
}

func TestServer_Health(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "HEALTHY", body["status"])
}

func TestServer_ValidateThenMetrics(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/access/validate", strings.NewReader(`{"code":"NOPE","sessionToken":"tok"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `access_validations_total{outcome="code_not_found"} 1`)
	assert.Contains(t, string(raw), "http_requests_total")
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(logger.NewNopLogger())})
	app.Get("/app", func(c *fiber.Ctx) error {
		return apperrors.NewConflictError("taken").WithCode("DUPLICATE_CODE")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	cases := []struct {
		path   string
		status int
		msg    string
	}{
		{"/app", fiber.StatusConflict, "taken"},
		{"/fiber", fiber.StatusTeapot, "short and stout"},
		{"/plain", fiber.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}
