package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postspot/user-service/internal/domain"
)

type countingVerifier struct {
	inner Verifier
	calls int
}

func (v *countingVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	v.calls++
	return v.inner.Verify(ctx, token)
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *bool) {
	t.Helper()
	tm := NewTokenManager("secret", Options{})
	reached := false

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(fiber.StatusUnauthorized)
		},
	})
	app.Get("/me", NewMiddleware(tm).Handle, func(c *fiber.Ctx) error {
		reached = true
		identity, ok := IdentityFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(identity.SubjectID)
	})
	return app, tm, &reached
}

func TestMiddleware_AcceptsValidBearer(t *testing.T) {
	app, tm, reached := newTestApp(t)
	token, _, err := tm.GenerateToken("sub-1", "Ada", "ada@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, *reached)
}

func TestMiddleware_RejectsBeforeHandler(t *testing.T) {
	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic dXNlcjpwYXNz",
		"empty":      "Bearer ",
		"bad token":  "Bearer abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			app, _, reached := newTestApp(t)
			req := httptest.NewRequest("GET", "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.False(t, *reached)
		})
	}
}

func TestMiddleware_SkipsVerifierWithoutHeader(t *testing.T) {
	v := &countingVerifier{inner: NewTokenManager("secret", Options{})}
	app := fiber.New()
	app.Get("/me", NewMiddleware(v).Handle, func(c *fiber.Ctx) error { return nil })

	_, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Zero(t, v.calls)
}

func TestIdentityFromContext_Missing(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
