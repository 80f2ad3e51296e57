// Package server exposes the tagboard HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/config"
	"tagboard/internal/featureflags"
	"tagboard/internal/importer"
	"tagboard/internal/middleware"
	"tagboard/internal/models"
	"tagboard/internal/notifications"
	"tagboard/internal/repository"
	"tagboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	bodyLimit     = 1 << 20
	shutdownGrace = 10 * time.Second
)

// Server wires the services behind the HTTP handlers. The database and
// Redis connections belong to the caller; a nil Redis client disables
// event streams, rate limits and token revocation.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	// streams is cancelled when Serve begins shutting down so open event
	// streams let go of their connections.
	streams      context.Context
	userRepo     repository.UserRepository
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	userService  *service.UserService
	forumService *service.ForumService
	dmailService *service.DmailService
	bulkService  *service.BulkUpdateRequestService
}

// New builds a Server on already opened connections.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	middleware.InitMiddleware(cfg)

	notifier := notifications.NewNotifier(rdb)
	users := service.NewUserService(repository.NewUserRepository(db), cfg.NotifyAllAdmins)
	forum := service.NewForumService(repository.NewForumRepository(db), cfg.BulkForumCategoryID)
	dmails := service.NewDmailService(repository.NewDmailRepository(db), notifier)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("tagboard-api"),
		streams:        context.Background(),
		userRepo:       repository.NewUserRepository(db),
		notifier:       notifier,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userService:    users,
		forumService:   forum,
		dmailService:   dmails,
		bulkService: service.NewBulkUpdateRequestService(service.BulkUpdateRequestDeps{
			Repo:    repository.NewBulkUpdateRequestRepository(db),
			Applier: importer.New(db),
			Users:   users,
			Forum:   forum,
			Mail:    dmails,
			Locker:  cache.NewLocker(rdb),
			Events:  notifier,
			LockTTL: cfg.ApprovalLockTTL,
		}),
	}
}

// App returns a fiber app carrying the full middleware chain and every route.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Tagboard API",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler answers errors that escaped a handler. fiber errors keep
// their status; anything else is logged and hidden behind a 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()), slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Serve listens on the configured port until ctx is done, then stops event
// streams and drains in-flight requests for up to shutdownGrace.
func (s *Server) Serve(ctx context.Context) error {
	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()
	s.streams = streams

	app := s.App()
	listenErr := make(chan error, 1)
	go func() { listenErr <- app.Listen(":" + s.config.Port) }()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	middleware.Logger.Info("shutting down http server")
	stopStreams()
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return app.ShutdownWithContext(drainCtx)
}
