package ads

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler receives server-to-server completion callbacks from the ad network.
type Handler struct {
	store  *PostbackStore
	secret string
	logger *slog.Logger
}

// NewHandler constructs a postback handler.
func NewHandler(store *PostbackStore, secret string, logger *slog.Logger) *Handler {
	return &Handler{store: store, secret: secret, logger: logger}
}

// Postback records one completed view for the user_id query parameter.
func (h *Handler) Postback(c *fiber.Ctx) error {
	secret := c.Query("secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		h.logger.Warn("ad postback rejected", slog.String("ip", c.IP()))
		return fiber.NewError(http.StatusForbidden, "invalid postback secret")
	}
	userID := c.Query("user_id")
	if userID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}

	if err := h.store.Record(c.UserContext(), userID); err != nil {
		h.logger.Error("ad postback not recorded", slog.String("account_id", userID), slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "postback not recorded")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"ok": true})
}
