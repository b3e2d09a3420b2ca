package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/metadata"
)

// Middleware returns a Fiber middleware that reads an optional bearer
// token. Requests without one proceed anonymously; a malformed or expired
// token is rejected. The identity is stored in the request locals and on the
// user context passed to resolvers.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		user := &metadata.UserContext{ID: claims.Subject, Roles: claims.Roles}
		c.Locals("user", user)
		c.SetUserContext(metadata.WithUser(c.UserContext(), user))
		return c.Next()
	}
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

// RequireRole rejects anonymous callers and callers without the role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.HasRole(role) {
			return engine.ForbiddenError(role + " role required")
		}
		return c.Next()
	}
}
