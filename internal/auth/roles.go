package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/domain"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

// Authorize ensures the principal holds one of the allowed roles. No roles
// means any authenticated caller.
func Authorize(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("Not authorized to access this resource")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated as a doctor or a patient.
func RequireAnyRole() fiber.Handler {
	return Authorize()
}
