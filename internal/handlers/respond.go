package handlers

import (
	"github.com/gofiber/fiber/v2"

	"blog-backend/internal/apperr"
)

// respondErr maps a structured service error onto the wire. TransientStore
// never reaches here in normal operation; if it does it reads as a server
// error.
func respondErr(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": apperr.Message(err)})
}
