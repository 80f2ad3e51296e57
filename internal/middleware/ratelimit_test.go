package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLimitAllowBypassedOutsideProduction(t *testing.T) {
	for _, env := range []string{"", "development", "test", "stress"} {
		t.Setenv("APP_ENV", env)
		d, err := Limit{Name: "x", Max: 1, Window: time.Minute}.Allow(context.Background(), nil, "user:1")
		require.NoError(t, err, env)
		assert.True(t, d.Allowed, env)
	}
}

func TestLimitAllowCountsWithinWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr, rdb := newTestRedis(t)
	ctx := context.Background()
	l := Limit{Name: "bulk_update_requests", Max: 2, Window: time.Minute}

	d, err := l.Allow(ctx, rdb, "user:7")
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 1, ResetIn: time.Minute}, d)

	d, err = l.Allow(ctx, rdb, "user:7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Remaining)

	d, err = l.Allow(ctx, rdb, "user:7")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("rl:bulk_update_requests:user:7"))

	d, err = l.Allow(ctx, rdb, "user:8")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "subjects are counted separately")

	mr.FastForward(time.Minute + time.Second)
	d, err = l.Allow(ctx, rdb, "user:7")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimitAllowWithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Limit{Name: "x", Max: 1, Window: time.Minute}.Allow(context.Background(), nil, "ip:1")
	assert.ErrorIs(t, err, errNoRedis)
}

func TestRateLimitMiddleware(t *testing.T) {
	get := func(t *testing.T, app *fiber.App, method, path string) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(method, path, nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

	t.Run("fails open without redis", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, Limit{Name: "test", Max: 1, Window: time.Minute}), ok)
		assert.Equal(t, http.StatusOK, get(t, app, http.MethodGet, "/test").StatusCode)
	})

	t.Run("fails closed when asked", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/sensitive", RateLimit(nil, Limit{Name: "sensitive", Max: 1, Window: time.Minute, FailClosed: true}), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(t, app, http.MethodGet, "/sensitive").StatusCode)
	})

	t.Run("blocks after the limit with headers", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Post("/submit", RateLimit(rdb, Limit{Name: "submit", Max: 1, Window: time.Minute}), ok)

		first := get(t, app, http.MethodPost, "/submit")
		assert.Equal(t, http.StatusOK, first.StatusCode)
		assert.Equal(t, "1", first.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", first.Header.Get("X-RateLimit-Remaining"))

		second := get(t, app, http.MethodPost, "/submit")
		assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
		assert.Equal(t, "60", second.Header.Get("Retry-After"))
	})
}
