package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"tagboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Limit is a fixed window counter kept in redis under rl:<Name>:<subject>.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	// FailClosed answers 503 when redis cannot be reached. The default lets
	// the request through.
	FailClosed bool
}

// Decision is the outcome of counting one hit against a Limit.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

var errNoRedis = errors.New("rate limit store unavailable")

// limitsEnforced is false for local and test environments so scripted
// workflows are never throttled.
func limitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test", "stress":
		return false
	}
	return true
}

func (l Limit) key(subject string) string {
	return fmt.Sprintf("rl:%s:%s", l.Name, subject)
}

// Allow counts a hit for subject.
func (l Limit) Allow(ctx context.Context, rdb *redis.Client, subject string) (Decision, error) {
	if !limitsEnforced() {
		return Decision{Allowed: true, Remaining: l.Max}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRedis
	}

	key := l.key(subject)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	resetIn := ttl.Val()
	if resetIn <= 0 {
		// First hit in the window, or a key that lost its expiry.
		if err := rdb.PExpire(ctx, key, l.Window).Err(); err != nil {
			return Decision{}, err
		}
		resetIn = l.Window
	}

	return Decision{
		Allowed:   count <= l.Max,
		Remaining: max(l.Max-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// subject keys authenticated callers by user and everyone else by address.
func subject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces l on every request that reaches it.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		d, err := l.Allow(ctx, rdb, subject(c))
		if err != nil {
			observability.RedisErrorRate.WithLabelValues("rate_limit").Inc()
			if !l.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit store unavailable, rejecting request",
				slog.String("limit", l.Name),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			observability.RateLimitRejections.WithLabelValues(l.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(d.ResetIn.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
