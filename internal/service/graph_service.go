package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/events"
	"github.com/postspot/user-service/internal/repository"
)

// GraphService maintains follow edges between directory users.
type GraphService struct {
	follows    repository.FollowRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// GraphDependencies bundles collaborators for the graph service.
type GraphDependencies struct {
	FollowRepo repository.FollowRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewGraphService constructs the service.
func NewGraphService(deps GraphDependencies) *GraphService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphService{
		follows:    deps.FollowRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Follow makes followerID follow followeeID. Following twice is not an error.
func (s *GraphService) Follow(ctx context.Context, followerID, followeeID string) error {
	edge := domain.Edge{FollowerID: followerID, FolloweeID: followeeID}
	if err := validateEdge(edge); err != nil {
		return err
	}
	if err := edge.Validate(); err != nil {
		return err
	}

	created, err := s.follows.Follow(ctx, edge.FollowerID, edge.FolloweeID)
	if err != nil {
		return err
	}
	if created {
		s.logger.Debug("follow created", zap.String("follower_id", edge.FollowerID), zap.String("followee_id", edge.FolloweeID))
		s.publish(ctx, events.NewEvent(events.EventUserFollowed, edge.FollowerID, edge.FolloweeID, nil))
	}
	return nil
}

// Unfollow removes the edge if present. Neither user has to exist, and a
// self-edge never exists, so unfollowing oneself succeeds without change.
func (s *GraphService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	edge := domain.Edge{FollowerID: followerID, FolloweeID: followeeID}
	if err := validateEdge(edge); err != nil {
		return err
	}
	if edge.FollowerID == edge.FolloweeID {
		return nil
	}

	removed, err := s.follows.Unfollow(ctx, edge.FollowerID, edge.FolloweeID)
	if err != nil {
		return err
	}
	if removed {
		s.logger.Debug("follow removed", zap.String("follower_id", edge.FollowerID), zap.String("followee_id", edge.FolloweeID))
		s.publish(ctx, events.NewEvent(events.EventUserUnfollowed, edge.FollowerID, edge.FolloweeID, nil))
	}
	return nil
}

// IsFollowing reports whether the edge exists. A user never follows itself.
func (s *GraphService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	edge := domain.Edge{FollowerID: followerID, FolloweeID: followeeID}
	if err := validateEdge(edge); err != nil {
		return false, err
	}
	if edge.FollowerID == edge.FolloweeID {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, edge.FollowerID, edge.FolloweeID)
}

// ListFollowers returns who follows userID, ordered by id.
func (s *GraphService) ListFollowers(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}
	return s.follows.ListFollowers(ctx, userID)
}

// ListFollowees returns whom userID follows, ordered by id.
func (s *GraphService) ListFollowees(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}
	return s.follows.ListFollowees(ctx, userID)
}

func (s *GraphService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// validateID rejects blank ids and ids carrying surrounding whitespace.
// Ids are opaque and are never rewritten.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("user id %q has surrounding whitespace: %w", id, domain.ErrInvalidInput)
	}
	return nil
}

func validateEdge(e domain.Edge) error {
	if err := validateID(e.FollowerID); err != nil {
		return err
	}
	return validateID(e.FolloweeID)
}
