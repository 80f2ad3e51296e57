package server

import (
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/middleware"
	"tagboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	defaultOrigins           = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	defaultRequestsPerMinute = 100
)

// SetupMiddleware installs the app-wide chain. Order matters: ids and spans
// exist before anything logs, and CORS runs before the limiter so rejected
// browser requests still carry CORS headers.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           int((24 * time.Hour).Seconds()),
	}))

	app.Use(s.globalLimiter())
}

// globalLimiter caps requests per address. Preflight requests pass through.
func (s *Server) globalLimiter() fiber.Handler {
	perMinute := s.config.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimitRejections.WithLabelValues("global").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	})
}

// rejectRevokedTokens must run after middleware.AuthRequired. Tokens whose
// jti was blacklisted by Logout are refused while the entry lives. Without
// Redis, or when Redis fails, tokens are accepted.
func (s *Server) rejectRevokedTokens(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	if jti == "" || s.redis == nil {
		return c.Next()
	}

	revoked, err := s.redis.Exists(c.UserContext(), cache.TokenBlacklistKey(jti)).Result()
	if err == nil && revoked > 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token has been revoked"})
	}
	return c.Next()
}
