// Package middleware provides the fiber middleware shared by every route:
// authentication, logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"tagboard/internal/config"
	"tagboard/internal/models"
	"tagboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "tagboard-api"
	tokenAudience = "tagboard-client"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Claims is the payload of the bearer tokens issued at login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the account id carried in the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid subject")
	}
	return uint(id), nil
}

// IssueToken signs a token for user that expires after ttl. Every token
// gets a random id so it can be revoked on its own.
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, *Claims, error) {
	if secret == "" {
		return "", nil, errors.New("JWT secret not configured")
	}
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken verifies signature, issuer, audience and lifetime.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// UserLookup loads the account behind an authenticated user id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}

// AuthRequired accepts a valid bearer token and stores the caller in
// c.Locals: "userID", "jti" and "tokenExpiresAt".
func AuthRequired(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return unauthorized(c, "Authorization header required")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" || strings.Contains(raw, " ") {
		return unauthorized(c, "Invalid authorization header format")
	}

	claims, err := ParseToken(cfg.JWTSecret, raw)
	if err != nil {
		return unauthorized(c, "Invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return unauthorized(c, "Invalid user ID in token")
	}

	c.Locals("userID", userID)
	c.Locals("jti", claims.ID)
	c.Locals("tokenExpiresAt", claims.ExpiresAt.Time)
	c.SetUserContext(observability.WithUserID(c.UserContext(), userID))

	return c.Next()
}

// AdminRequired must run after AuthRequired. It loads the acting user and
// rejects non-admins. The loaded user is stored in c.Locals("user").
func AdminRequired(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return unauthorized(c, "Authentication required")
		}

		user, err := users.GetByID(c.UserContext(), userID)
		switch {
		case models.ErrorCode(err) == models.CodeNotFound:
			return unauthorized(c, "Authentication required")
		case err != nil:
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		case !user.IsAdmin:
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Admin access required"))
		}

		c.Locals("user", user)
		return c.Next()
	}
}
