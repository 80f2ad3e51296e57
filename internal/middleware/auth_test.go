package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tagboard/internal/config"
	"tagboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, claims *Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestIssueAndParseToken(t *testing.T) {
	signed, issued, err := IssueToken(testSecret, &models.User{ID: 42, Username: "albert"}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	parsed, err := ParseToken(testSecret, signed)
	require.NoError(t, err)
	id, err := parsed.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, "albert", parsed.Username)
	assert.Equal(t, issued.ID, parsed.ID)

	_, err = ParseToken("another-secret", signed)
	assert.Error(t, err)

	_, _, err = IssueToken("", &models.User{ID: 1}, time.Hour)
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret})
	app := fiber.New()
	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID"), "jti": c.Locals("jti")})
	})

	valid, _, err := IssueToken(testSecret, &models.User{ID: 123}, time.Hour)
	require.NoError(t, err)
	expired, _, err := IssueToken(testSecret, &models.User{ID: 123}, -time.Hour)
	require.NoError(t, err)

	registered := func(mutate func(*jwt.RegisteredClaims)) string {
		rc := jwt.RegisteredClaims{
			Subject:   "123",
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		mutate(&rc)
		return signClaims(t, &Claims{RegisteredClaims: rc})
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"extra fields", "Bearer " + valid + " trailing", http.StatusUnauthorized},
		{"malformed", "Bearer malformed.token.here", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"foreign issuer", "Bearer " + registered(func(rc *jwt.RegisteredClaims) { rc.Issuer = "elsewhere" }), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + registered(func(rc *jwt.RegisteredClaims) { rc.Audience = jwt.ClaimStrings{"admin-panel"} }), http.StatusUnauthorized},
		{"no expiry", "Bearer " + registered(func(rc *jwt.RegisteredClaims) { rc.ExpiresAt = nil }), http.StatusUnauthorized},
		{"zero subject", "Bearer " + registered(func(rc *jwt.RegisteredClaims) { rc.Subject = "0" }), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(123), body["userID"])
				assert.NotEmpty(t, body["jti"])
			}
		})
	}
}

type stubUsers map[uint]*models.User

func (s stubUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if id == 500 {
		return nil, errors.New("database unavailable")
	}
	user, ok := s[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

func TestAdminRequired(t *testing.T) {
	app := fiber.New()
	users := stubUsers{
		1: {ID: 1, Username: "admin", IsAdmin: true},
		2: {ID: 2, Username: "member"},
	}

	withUser := func(id uint) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if id != 0 {
				c.Locals("userID", id)
			}
			return c.Next()
		}
	}
	for _, id := range []uint{0, 1, 2, 3, 500} {
		app.Get("/admin/"+strconv.Itoa(int(id)), withUser(id), AdminRequired(users), func(c *fiber.Ctx) error {
			user := c.Locals("user").(*models.User)
			return c.JSON(fiber.Map{"username": user.Username})
		})
	}

	tests := []struct {
		name           string
		userID         uint
		expectedStatus int
	}{
		{"Admin", 1, http.StatusOK},
		{"Non Admin", 2, http.StatusForbidden},
		{"Unknown User", 3, http.StatusUnauthorized},
		{"Missing Auth", 0, http.StatusUnauthorized},
		{"Lookup Failure", 500, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/"+strconv.Itoa(int(tt.userID)), nil)
			resp, err := app.Test(req)
			assert.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}
