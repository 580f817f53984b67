package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/varunock/shareport/internal/services"
)

// AuthHandler exposes the connection-code authentication endpoints.
type AuthHandler struct {
	store *session.Store
	auth  *services.AuthService
}

func NewAuthHandler(store *session.Store, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{store: store, auth: auth}
}

// Authenticate validates a submitted connection code.
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	sess, err := h.store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
	}

	result, err := h.auth.Authenticate(sess, req.Code)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
	}

	switch {
	case result.OK:
		log.Printf("successful authentication from %s", c.IP())
		return c.JSON(fiber.Map{"success": true, "message": "Authentication successful"})
	case result.Locked:
		log.Printf("authentication locked out for %s", c.IP())
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success":     false,
			"error":       "Too many attempts",
			"retry_after": result.RetryAfter,
		})
	default:
		log.Printf("failed authentication attempt from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success":            false,
			"error":              "Invalid code",
			"attempts_remaining": result.AttemptsRemaining,
		})
	}
}

// Disconnect clears the session unconditionally.
func (h *AuthHandler) Disconnect(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err == nil {
		if err := h.auth.Disconnect(sess); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
		}
	}
	return c.JSON(fiber.Map{"success": true, "message": "Disconnected successfully"})
}

// SessionStatus reports authentication state without requiring it.
func (h *AuthHandler) SessionStatus(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return c.JSON(fiber.Map{"authenticated": false, "error": "Not authenticated"})
	}

	status, err := h.auth.Status(sess)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Session error"})
	}

	switch {
	case status.Authenticated:
		return c.JSON(fiber.Map{
			"authenticated":        true,
			"connection_code_hint": status.CodeHint,
			"expires_in":           status.ExpiresIn,
		})
	case status.Expired:
		return c.JSON(fiber.Map{"authenticated": false, "error": "Session expired"})
	default:
		return c.JSON(fiber.Map{"authenticated": false, "error": "Not authenticated"})
	}
}
