package server

import (
	"strings"

	"tagboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, ok := idParam(c, "user")
	if !ok {
		return nil
	}

	user, err := s.userService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(user)
}

// SetUserRole handles PUT /api/admin/users/:id/role with {"role": "member" |
// "builder" | "admin"}. Builders may edit any pending bulk update request.
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	targetID, ok := idParam(c, "user")
	if !ok {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Role must be member, builder or admin"))
	}

	ctx := c.UserContext()
	if role != models.RoleAdmin && s.protectsDevRoot() {
		target, err := s.userService.GetUserByID(ctx, targetID)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		if strings.EqualFold(target.Username, s.config.DevRootUsername) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Cannot demote the development root admin"))
		}
	}

	user, err := s.userService.ChangeRole(ctx, currentUserID(c), targetID, role)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{"role": user.Role(), "user": user})
}

func (s *Server) protectsDevRoot() bool {
	return s.config.DevBootstrapRoot && s.config.DevRootUsername != "" &&
		strings.EqualFold(s.config.Env, "development")
}
