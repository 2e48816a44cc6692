package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:action:"

// ActionRateLimit caps mutating requests per identity per minute using a
// Redis counter. It is a no-op without Redis and fails open on cache errors.
func ActionRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		subject := c.IP()
		if user, ok := UserFrom(c); ok {
			subject = user.ID
		}
		key := rateLimitPrefix + subject

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("subject", subject), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again in a minute")
		}
		return c.Next()
	}
}
