package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"blog-backend/model"
	"blog-backend/services"
)

const callerLocal = "caller"

// RequireAuth resolves the bearer token to a caller identity and rejects the
// request when there is none.
func RequireAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no token provided"})
		}
		user, err := auth.ResolveCaller(c.Context(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(callerLocal, user.Caller())
		return c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and lets
// anonymous requests through untouched.
func OptionalAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token, ok := bearerToken(c); ok {
			if user, err := auth.ResolveCaller(c.Context(), token); err == nil {
				c.Locals(callerLocal, user.Caller())
			}
		}
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok || !caller.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
		}
		return c.Next()
	}
}

// CallerFrom reads the identity a preceding auth middleware resolved.
func CallerFrom(c *fiber.Ctx) (model.Caller, bool) {
	if v := c.Locals(callerLocal); v != nil {
		if caller, ok := v.(model.Caller); ok {
			return caller, true
		}
	}
	return model.Caller{}, false
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	auth := c.Get("Authorization")
	if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}
