package access

import (
	"context"
	"fmt"

	accesshttp "scl90-gate/internal/access/adapter/http"
	"scl90-gate/internal/access/adapter/persistence/memory"
	"scl90-gate/internal/access/adapter/persistence/mongodb"
	"scl90-gate/internal/access/adapter/persistence/sqlstore"
	"scl90-gate/internal/access/adapter/security"
	"scl90-gate/internal/access/config"
	"scl90-gate/internal/access/domain/repository"
	"scl90-gate/internal/access/usecase"
	"scl90-gate/internal/shared/eventbus"
	"scl90-gate/internal/shared/logger"
	"scl90-gate/internal/shared/metrics"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Dependencies are the shared services an AccessModule is built on
type Dependencies struct {
	Repository repository.AccessRepository
	// ActivityStore is optional; without it the activity feed is empty
	ActivityStore repository.ActivityStore
	Bus           *eventbus.EventBus
	Metrics       *metrics.Metrics
	Logger        logger.Logger
}

// AccessModule represents the complete access-code module
type AccessModule struct {
	repository repository.AccessRepository
	tokenSvc   repository.AdminTokenService
	validate   usecase.ValidateUsecaseInterface
	admin      usecase.AdminUsecaseInterface
	activity   *usecase.ActivityUsecase
	feed       *accesshttp.ActivityFeed
	handler    *accesshttp.AccessHTTPHandler
	adminHTTP  *accesshttp.AdminHTTPHandler
	config     *config.Config
}

// NewAccessModule creates a new access module instance
func NewAccessModule(cfg *config.Config, deps Dependencies) (*AccessModule, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("access repository is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Bus == nil {
		deps.Bus = eventbus.NewEventBus(deps.Logger)
	}

	tokenSvc, err := security.NewAdminTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token service: %w", err)
	}

	opts := []usecase.Option{
		usecase.WithPublisher(deps.Bus),
		usecase.WithMetrics(deps.Metrics),
		usecase.WithLogger(deps.Logger),
	}
	validateUsecase := usecase.NewValidateUsecase(deps.Repository, cfg, opts...)
	adminUsecase := usecase.NewAdminUsecase(deps.Repository, tokenSvc, cfg, opts...)

	activityUsecase := usecase.NewActivityUsecase(deps.ActivityStore, usecase.WithLogger(deps.Logger))
	activityUsecase.Attach(deps.Bus)

	feed := accesshttp.NewActivityFeed(deps.Logger)
	feed.Attach(deps.Bus)

	return &AccessModule{
		repository: deps.Repository,
		tokenSvc:   tokenSvc,
		validate:   validateUsecase,
		admin:      adminUsecase,
		activity:   activityUsecase,
		feed:       feed,
		handler:    accesshttp.NewAccessHTTPHandler(validateUsecase),
		adminHTTP:  accesshttp.NewAdminHTTPHandler(adminUsecase, activityUsecase, feed),
		config:     cfg,
	}, nil
}

// RegisterRoutes mounts the public and admin routes under /api/v1
func (am *AccessModule) RegisterRoutes(router fiber.Router) {
	middleware := am.GetMiddleware()
	api := router.Group("/api/v1", middleware.SecurityHeaders())

	am.handler.RegisterRoutes(api, middleware.RateLimiter(am.config.RateLimitMax, am.config.RateLimitWindow))
	am.adminHTTP.RegisterRoutes(api, middleware)
}

// GetMiddleware returns the access middleware
func (am *AccessModule) GetMiddleware() *accesshttp.AccessMiddleware {
	return accesshttp.NewAccessMiddleware(am.admin, am.config.AdminHeader)
}

// GetValidateUsecase returns the validation usecase
func (am *AccessModule) GetValidateUsecase() usecase.ValidateUsecaseInterface {
	return am.validate
}

// GetAdminUsecase returns the admin usecase
func (am *AccessModule) GetAdminUsecase() usecase.AdminUsecaseInterface {
	return am.admin
}

// GetRepository returns the access repository
func (am *AccessModule) GetRepository() repository.AccessRepository {
	return am.repository
}

// Stop disconnects live subscribers. Stores are owned by the caller.
func (am *AccessModule) Stop() error {
	am.feed.Close()
	return nil
}

// OpenRepository connects the store selected by cfg.StoreDriver
func OpenRepository(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.AccessRepository, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		repo, err := mongodb.NewMongoAccessRepository(ctx, client.Database(cfg.DatabaseName), log)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create mongodb access repository: %w", err)
		}
		return repo, nil

	case config.StoreDriverSQLite:
		repo, err := sqlstore.NewSQLiteAccessRepository(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite access repository: %w", err)
		}
		return repo, nil

	case config.StoreDriverMemory:
		return memory.NewAccessRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
