package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/flexyearn/flexyearn/internal/identity"
)

const (
	// InitDataHeader carries the raw Telegram WebApp initData string.
	InitDataHeader = "X-Telegram-Init-Data"
	tmaScheme      = "tma "
	userLocal      = "user"
)

// Identity resolves the Telegram user behind each request. Requests that
// cannot be attributed to a user are rejected with 401.
func Identity(resolver *identity.Resolver, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(InitDataHeader)
		if raw == "" {
			if authz := c.Get(fiber.HeaderAuthorization); len(authz) > len(tmaScheme) && strings.EqualFold(authz[:len(tmaScheme)], tmaScheme) {
				raw = strings.TrimSpace(authz[len(tmaScheme):])
			}
		}

		user, err := resolver.Resolve(raw)
		if err != nil {
			logger.Warn("identity rejected", slog.String("path", c.Path()), slog.Any("error", err))
			if errors.Is(err, identity.ErrOutsideHost) {
				return fiber.NewError(fiber.StatusUnauthorized, "this app must be opened inside Telegram")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "invalid Telegram init data")
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// UserFrom returns the identity stored by Identity.
func UserFrom(c *fiber.Ctx) (identity.User, bool) {
	user, ok := c.Locals(userLocal).(identity.User)
	return user, ok && user.ID != ""
}
