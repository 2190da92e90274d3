package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/repository"
	apperrors "github.com/healthhub/healthhub-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	ID        string
	Email     string
	Role      domain.Role
	Kind      domain.SubjectKind
	FirstName string
	LastName  string
}

// PrincipalOf builds the request principal for a subject.
func PrincipalOf(subject domain.Subject) *Principal {
	base := subject.Base()
	return &Principal{
		ID:        base.ID,
		Email:     base.Email,
		Role:      domain.RoleOf(subject),
		Kind:      subject.Kind(),
		FirstName: base.FirstName,
		LastName:  base.LastName,
	}
}

// SubjectFinder re-fetches the live subject named by a token.
type SubjectFinder interface {
	FindByID(ctx context.Context, kind domain.SubjectKind, id string) (domain.Subject, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	subjects SubjectFinder
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, subjects SubjectFinder) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, subjects: subjects}
}

// Handle enforces authentication for protected routes. The subject is loaded on
// every request so deactivation applies to tokens already handed out.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if authHeader == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthenticated("TOKEN_MISSING", "Authentication required. No token provided.")
	}

	claims, err := m.tokens.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewUnauthenticated("TOKEN_EXPIRED", "Token expired")
		}
		return apperrors.NewUnauthenticated("TOKEN_INVALID", "Invalid token")
	}

	kind, _ := claims.Kind()
	subject, err := m.subjects.FindByID(c.UserContext(), kind, claims.SubjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthenticated("TOKEN_INVALID", "Invalid token. User not found.")
		}
		return apperrors.MapError(err)
	}
	if !subject.Base().IsActive {
		return apperrors.NewForbiddenCode("ACCOUNT_DEACTIVATED", "Account has been deactivated or is on hold")
	}

	c.Locals(principalKey, PrincipalOf(subject))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
