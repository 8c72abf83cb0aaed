package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/postspot/user-service/internal/api/dto"
	"github.com/postspot/user-service/internal/auth"
	"github.com/postspot/user-service/internal/service"
	apperrors "github.com/postspot/user-service/pkg/util/errorutil"
)

// FollowsHandler exposes the social graph. The follower of a mutation is
// always the authenticated caller.
type FollowsHandler struct {
	graph *service.GraphService
}

// NewFollowsHandler constructs handler.
func NewFollowsHandler(graph *service.GraphService) *FollowsHandler {
	return &FollowsHandler{graph: graph}
}

// Follow handles POST /users/:id/followers.
func (h *FollowsHandler) Follow(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	if err := h.graph.Follow(c.UserContext(), identity.SubjectID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unfollow handles DELETE /users/:id/followers.
func (h *FollowsHandler) Unfollow(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	if err := h.graph.Unfollow(c.UserContext(), identity.SubjectID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// IsFollower handles GET /users/:id/followers/:followerId. It answers 204
// when the edge exists and 404 otherwise.
func (h *FollowsHandler) IsFollower(c *fiber.Ctx) error {
	following, err := h.graph.IsFollowing(c.UserContext(), c.Params("followerId"), c.Params("id"))
	if err != nil {
		return err
	}
	if !following {
		return apperrors.NewNotFound("follow", nil)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Followers handles GET /users/:id/followers.
func (h *FollowsHandler) Followers(c *fiber.Ctx) error {
	followers, err := h.graph.ListFollowers(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaryList(followers)})
}

// Followees handles GET /users/:id/followees.
func (h *FollowsHandler) Followees(c *fiber.Ctx) error {
	followees, err := h.graph.ListFollowees(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserSummaryList(followees)})
}
