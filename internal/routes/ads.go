package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/flexyearn/flexyearn/internal/ads"
)

// RegisterAdRoutes wires the ad network postback endpoint.
func RegisterAdRoutes(r fiber.Router, h *ads.Handler) {
	r.Get("/ads/postback", h.Postback)
}
