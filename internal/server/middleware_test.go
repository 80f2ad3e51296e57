package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tagboard/internal/cache"
	"tagboard/internal/config"
	"tagboard/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// signToken mints a token with a chosen jti so revocation can be exercised
// against a known key.
func signToken(t *testing.T, userID uint, jti string) string {
	t.Helper()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    "tagboard-api",
			Audience:  jwt.ClaimStrings{"tagboard-client"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return str
}

func TestServer_RevokedTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{JWTSecret: testSecret}
	middleware.InitMiddleware(cfg)
	s := &Server{config: cfg, redis: rdb}

	app := fiber.New()
	app.Get("/protected", middleware.AuthRequired, s.rejectRevokedTokens, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	app.Post("/logout", middleware.AuthRequired, s.rejectRevokedTokens, s.Logout)

	call := func(method, path, token string) *http.Response {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	token := signToken(t, 123, "jti-live")

	resp := call(http.MethodGet, "/protected", token)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(123), body["userID"])

	resp = call(http.MethodPost, "/logout", token)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, mr.Exists(cache.TokenBlacklistKey("jti-live")))

	resp = call(http.MethodGet, "/protected", token)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Tokens without a jti cannot be revoked and keep working.
	resp = call(http.MethodGet, "/protected", signToken(t, 123, ""))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RevocationSkippedWithoutRedis(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	middleware.InitMiddleware(cfg)
	s := &Server{config: cfg}

	app := fiber.New()
	app.Get("/protected", middleware.AuthRequired, s.rejectRevokedTokens, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, 5, "jti-x"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
