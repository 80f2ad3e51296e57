package server

import (
	"time"

	"tagboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

var (
	signupLimit = middleware.Limit{Name: "signup", Max: 3, Window: 10 * time.Minute}
	loginLimit  = middleware.Limit{Name: "login", Max: 10, Window: 5 * time.Minute, FailClosed: true}
	createLimit = middleware.Limit{Name: "create_bulk_update_request", Max: 10, Window: 10 * time.Minute}
)

// SetupRoutes registers every endpoint.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "Tagboard Metrics Dashboard"}))

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, signupLimit), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, loginLimit), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.rejectRevokedTokens, s.Logout)

	// Anyone may browse requests and their threads.
	api.Get("/bulk_update_requests", s.ListBulkUpdateRequests)
	api.Get("/bulk_update_requests/:id", s.GetBulkUpdateRequest)
	api.Get("/forum_topics/:id", s.GetForumTopic)

	member := api.Group("", middleware.AuthRequired, s.rejectRevokedTokens)
	member.Post("/bulk_update_requests", middleware.RateLimit(s.redis, createLimit), s.CreateBulkUpdateRequest)
	member.Put("/bulk_update_requests/:id", s.UpdateBulkUpdateRequest)
	member.Get("/users/me", s.GetMyProfile)
	member.Get("/users/:id", s.GetUserProfile)
	member.Get("/dmails", s.GetMyDmails)
	member.Get("/events", s.StreamEvents)

	admin := member.Group("/admin", middleware.AdminRequired(s.userService))
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/users/:id/role", s.SetUserRole)
	admin.Post("/bulk_update_requests/:id/approve", s.ApproveBulkUpdateRequest)
	admin.Post("/bulk_update_requests/:id/reject", s.RejectBulkUpdateRequest)
}
