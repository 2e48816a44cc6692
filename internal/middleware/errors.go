package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors returned by handlers as
// {"error": message, "recoverable": bool}. Unauthorized requests are not
// recoverable because the client cannot fix them by retrying.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "something went wrong, please retry"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error":       message,
			"recoverable": code != fiber.StatusUnauthorized,
		})
	}
}
