package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/postspot/user-service/internal/domain"
	apperrors "github.com/postspot/user-service/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Middleware validates bearer tokens before any handler touches the store.
type Middleware struct {
	verifier Verifier
}

// NewMiddleware constructs middleware.
func NewMiddleware(verifier Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handle enforces authentication for protected routes. Rejections carry the
// same generic message whatever the cause.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	identity, err := m.verifier.Verify(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}
