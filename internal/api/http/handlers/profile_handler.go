package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/service"
)

// ProfileHandler returns the signed-in subject.
type ProfileHandler struct {
	accounts *service.AccountService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(accounts *service.AccountService) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// Get handles GET /profile.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	subject, err := h.accounts.Profile(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": subjectResponse(subject)})
}
