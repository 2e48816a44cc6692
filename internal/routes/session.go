package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flexyearn/flexyearn/internal/session"
)

// RegisterSessionRoutes wires the account, reward, spin and withdrawal
// endpoints. idempotency guards the withdrawal route only.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler, idempotency fiber.Handler) {
	r.Post("/session", h.Bootstrap)
	r.Get("/account", h.Account)
	r.Get("/account/history", h.History)
	r.Post("/rewards/claim", h.ClaimReward)
	r.Get("/rewards/cooldown", h.Cooldown)
	r.Post("/spins", h.Spin)
	r.Post("/withdrawals", idempotency, h.Withdraw)
}
