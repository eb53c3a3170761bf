package http

import (
	"strconv"
	"strings"
	"time"

	"scl90-gate/internal/access/usecase"
	"scl90-gate/internal/shared/contextkeys"
	"scl90-gate/internal/shared/metrics"
	"scl90-gate/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// AccessMiddleware bundles the middleware used by the access routes
type AccessMiddleware struct {
	admin       usecase.AdminUsecaseInterface
	adminHeader string
}

// NewAccessMiddleware creates the middleware set. adminHeader carries the
// shared admin secret.
func NewAccessMiddleware(admin usecase.AdminUsecaseInterface, adminHeader string) *AccessMiddleware {
	if adminHeader == "" {
		adminHeader = "X-Admin-Password"
	}
	return &AccessMiddleware{
		admin:       admin,
		adminHeader: adminHeader,
	}
}

// CORS middleware. origins is a comma separated list, "*" when empty.
func (m *AccessMiddleware) CORS(origins string) fiber.Handler {
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + m.adminHeader,
		MaxAge:       86400,
	})
}

// SecurityHeaders adds security headers
func (m *AccessMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}

// RateLimiter limits validate calls per client IP. A max of zero disables it.
// Behind a proxy the app's ProxyHeader and TrustedProxies decide what
// c.IP() reports; raw forwarding headers are not trusted here.
func (m *AccessMiddleware) RateLimiter(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// RequestID middleware
func (m *AccessMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// RequestContext copies the request id into the user context so the logger
// can pick it up. It must run after RequestID.
func (m *AccessMiddleware) RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok && id != "" {
			c.SetUserContext(utils.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// AdminAuth accepts either the shared secret header or an admin bearer
// token. Browsers cannot set headers on websocket upgrades, so a token query
// parameter is accepted too.
func (m *AccessMiddleware) AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := ""
		if secret := c.Get(m.adminHeader); secret != "" && m.admin.Authenticate(secret) {
			subject = "secret"
		} else if token := extractBearer(c); token != "" {
			claims, err := m.admin.VerifyToken(token)
			if err == nil {
				subject = claims.Subject
			}
		}

		if subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.SetUserContext(utils.WithAdminSubject(c.UserContext(), subject))
		return c.Next()
	}
}

func extractBearer(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}

// AccessLog writes one structured line per request
func AccessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if id, ok := c.Locals(string(contextkeys.RequestIDKey)).(string); ok {
			fields = append(fields, zap.String("request_id", id))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

// Metrics records request counts and latency labelled by route template
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		labels := []string{path, c.Method(), strconv.Itoa(status)}
		m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}
