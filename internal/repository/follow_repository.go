package repository

import (
	"context"

	"github.com/postspot/user-service/internal/domain"
)

// FollowRepository maintains both directions of follow edges.
//
// Follow and Unfollow report whether they changed state, so that repeated
// calls are successful no-ops. Follow checks that both users exist and that
// the followee is open inside the same atomic unit as the write.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollowers(ctx context.Context, userID string) ([]domain.UserSummary, error)
	ListFollowees(ctx context.Context, userID string) ([]domain.UserSummary, error)
}

// Store bundles the repositories of one backend with its lifecycle.
type Store struct {
	Name    string
	Users   UserRepository
	Follows FollowRepository
	Ping    func(ctx context.Context) error
	Close   func()
}
