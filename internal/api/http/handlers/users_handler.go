package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/postspot/user-service/internal/api/dto"
	"github.com/postspot/user-service/internal/auth"
	"github.com/postspot/user-service/internal/service"
	apperrors "github.com/postspot/user-service/pkg/util/errorutil"
)

// UsersHandler exposes the user directory.
type UsersHandler struct {
	directory *service.DirectoryService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(directory *service.DirectoryService) *UsersHandler {
	return &UsersHandler{directory: directory}
}

// SignUp handles POST /users.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	var req dto.SignUpRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	user, err := h.directory.SignUp(c.UserContext(), identity, service.SignUpInput{Name: req.Name, Email: req.Email})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := h.directory.ReadUser(c.UserContext(), identity.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CloseMe handles DELETE /users/me.
func (h *UsersHandler) CloseMe(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	if err := h.directory.CloseAccount(c.UserContext(), identity.SubjectID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.directory.ReadUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaryResponse(user.Summary())})
}
