package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	readinessTimeout = 5 * time.Second

	statusHealthy     = "healthy"
	statusUnhealthy   = "unhealthy"
	statusUnavailable = "unavailable"
)

// LivenessCheck handles GET /health/live.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck handles GET /health/ready. Redis is optional, so only the
// database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	database := s.databaseStatus(ctx)
	code, overall := fiber.StatusOK, statusHealthy
	if database != statusHealthy {
		code, overall = fiber.StatusServiceUnavailable, statusUnhealthy
	}

	return c.Status(code).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{"database": database, "redis": s.redisStatus(ctx)},
		"time":   time.Now(),
	})
}

func (s *Server) databaseStatus(ctx context.Context) string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return statusUnhealthy
	}
	return statusHealthy
}

func (s *Server) redisStatus(ctx context.Context) string {
	switch {
	case s.redis == nil:
		return statusUnavailable
	case s.redis.Ping(ctx).Err() != nil:
		return statusUnhealthy
	default:
		return statusHealthy
	}
}
