package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/varunock/shareport/internal/services"
	"github.com/varunock/shareport/internal/web"
)

// Paths treated as API calls even without a JSON Accept header.
var apiPrefixes = []string{"/upload", "/files", "/download", "/delete", "/api"}

// RequireAuth validates the session before the wrapped handler runs. It is
// attached to every protected route; /authenticate, /session-status and the
// landing assets stay unguarded by not carrying it.
//
// Unauthenticated API requests get a structured 401; browser navigations
// fall back to the landing page so a fresh device always lands on the code
// prompt rather than a raw error.
func RequireAuth(store *session.Store, auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return reject(c, fiber.Map{
				"error": "Authentication required",
				"code":  "AUTH_REQUIRED",
			})
		}

		authenticated, expired, err := auth.Touch(sess)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
		}

		if authenticated {
			return c.Next()
		}

		if expired {
			return reject(c, fiber.Map{
				"error": "Session expired",
				"code":  "SESSION_EXPIRED",
			})
		}
		return reject(c, fiber.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}
}

func reject(c *fiber.Ctx, body fiber.Map) error {
	if wantsJSON(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(body)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(web.IndexHTML)
}

func wantsJSON(c *fiber.Ctx) bool {
	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return true
	}
	if strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		return true
	}
	path := c.Path()
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
