package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "github.com/philipxlee/bazingamart/internal/log"
	"github.com/philipxlee/bazingamart/internal/services"
)

// AttachUser puts the session user, if any, into Locals for templates and logs.
func AttachUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Redirect("/login")
		}
		u, err := auth.CurrentUser(c.UserContext(), sid)
		if err != nil || u == nil {
			return c.Redirect("/login")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireAPIUser authenticates JSON API calls with an "Authorization: Bearer"
// access token.
func RequireAPIUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			applog.Security(c, "access.denied.api", map[string]any{"reason": "missing_token"})
			return jsonError(c, fiber.StatusUnauthorized, "missing bearer token")
		}
		u, err := auth.ParseToken(c.UserContext(), strings.TrimSpace(raw))
		if err != nil {
			applog.Security(c, "access.denied.api", map[string]any{"reason": "invalid_token"})
			return jsonError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireSeller must run after RequireAPIUser.
func RequireSeller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil || !u.Seller {
			applog.Security(c, "access.denied.seller", nil)
			return jsonError(c, fiber.StatusForbidden, "seller account required")
		}
		return c.Next()
	}
}
