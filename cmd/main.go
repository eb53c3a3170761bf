package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	accesshttp "scl90-gate/internal/access/adapter/http"
	"scl90-gate/internal/access/config"
	"scl90-gate/internal/di"
	apperrors "scl90-gate/internal/shared/errors"
	"scl90-gate/internal/shared/logger"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"localhost"`
	Port        string `env:"SERVER_PORT" envDefault:"3000"`
	CORSOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`

	// Client IPs are read from ProxyHeader only when the peer is listed
	ProxyHeader    string   `env:"PROXY_HEADER"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		log.Fatalf("Failed to load server configuration: %v", err)
	}

	appLogger := logger.NewLogger()
	httpLogger := logger.NewZapLoggerFromEnv()

	accessCfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Fatalf("Failed to load access configuration: %v", err)
	}
	appLogger.Infof("Configuration loaded, store driver: %s", accessCfg.StoreDriver)

	container := di.NewContainer(appLogger, httpLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	if err := container.InitializeAccess(context.Background(), accessCfg); err != nil {
		appLogger.Fatalf("Failed to initialize access module: %v", err)
	}
	appLogger.Info("Access module initialized successfully")

	app := newApp(container, serverCfg, appLogger, httpLogger)

	serverAddr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}
}

// newApp wires middleware, operational endpoints and module routes
func newApp(container *di.Container, cfg *ServerConfig, appLogger logger.Logger, httpLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "SCL-90 Gate API v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: errorHandler(appLogger),

		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: cfg.ProxyHeader != "",
		TrustedProxies:          cfg.TrustedProxies,
	})

	module := container.GetAccessModule()
	mw := module.GetMiddleware()

	app.Use(recover.New())
	app.Use(mw.RequestID())
	app.Use(mw.RequestContext())
	app.Use(mw.CORS(cfg.CORSOrigins))
	app.Use(accesshttp.AccessLog(httpLogger))
	app.Use(accesshttp.Metrics(container.GetMetrics()))

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			appLogger.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "UNHEALTHY",
				"error":   err.Error(),
				"message": "One or more stores are unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"timestamp": time.Now().UTC(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(container.GetMetrics().Registry, promhttp.HandlerOpts{})))

	module.RegisterRoutes(app)
	return app
}

// errorHandler renders errors that escaped a handler as JSON
func errorHandler(appLogger logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return c.Status(appErr.HTTPCode).JSON(fiber.Map{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		appLogger.Errorf("HTTP Error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal Server Error",
		})
	}
}
