package server

import (
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/middleware"
	"tagboard/internal/models"
	"tagboard/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (s *Server) issueToken(user *models.User) (authResponse, error) {
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user, tokenTTL)
	if err != nil {
		return authResponse{}, models.NewInternalError(err)
	}
	return authResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Signup handles POST /api/auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if fields := validation.ValidateAccount(req.Username, req.Email, req.Password); len(fields) > 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(fields))
	}

	ctx := c.UserContext()
	for _, login := range []string{req.Email, req.Username} {
		existing, err := s.userRepo.FindByLogin(ctx, login)
		if err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		if existing != nil {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewConflictError("Username or email already taken"))
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	resp, err := s.issueToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles POST /api/auth/login. The login field takes a username or an
// email; email is still accepted on its own.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Login == "" {
		req.Login = req.Email
	}

	user, err := s.userRepo.FindByLogin(c.UserContext(), req.Login)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	// Unknown accounts and wrong passwords look the same to the caller.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	resp, err := s.issueToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(resp)
}

// Logout handles POST /api/auth/logout. The token id stays blacklisted for
// the rest of the token's lifetime.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	expiresAt, _ := c.Locals("tokenExpiresAt").(time.Time)
	ttl := time.Until(expiresAt)
	if jti == "" || s.redis == nil || ttl <= 0 {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	if err := s.redis.Set(c.UserContext(), cache.TokenBlacklistKey(jti), "1", ttl).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
