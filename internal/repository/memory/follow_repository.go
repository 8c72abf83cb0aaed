package memory

import (
	"context"
	"fmt"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type followRepository struct {
	store *Store
	tx    *txn.Coordinator
}

// NewFollowRepository returns a memory-backed FollowRepository.
func NewFollowRepository(store *Store, tx *txn.Coordinator) repository.FollowRepository {
	return &followRepository{store: store, tx: tx}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	s := r.store
	keys := []string{userKey(followerID), userKey(followeeID), followeesKey(followerID), followersKey(followeeID)}
	var created bool
	err := r.tx.Run(ctx, "follow", func(context.Context) error {
		created = false
		return s.attempt(keys, func() (func(), error) {
			if _, ok := s.users[followerID]; !ok {
				return nil, fmt.Errorf("follower %q: %w", followerID, domain.ErrUserNotFound)
			}
			followee, ok := s.users[followeeID]
			if !ok {
				return nil, fmt.Errorf("followee %q: %w", followeeID, domain.ErrUserNotFound)
			}
			if followee.Status != domain.AccountStatusOpen {
				return nil, fmt.Errorf("followee %q is %s: %w", followeeID, followee.Status, domain.ErrUserInactive)
			}
			if _, ok := s.followees[followerID][followeeID]; ok {
				return nil, nil
			}
			return func() {
				addMember(s.followees, followerID, followeeID)
				addMember(s.followers, followeeID, followerID)
				created = true
			}, nil
		})
	})
	return created, err
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	s := r.store
	keys := []string{followeesKey(followerID), followersKey(followeeID)}
	var removed bool
	err := r.tx.Run(ctx, "unfollow", func(context.Context) error {
		removed = false
		return s.attempt(keys, func() (func(), error) {
			if _, ok := s.followees[followerID][followeeID]; !ok {
				return nil, nil
			}
			return func() {
				removeMember(s.followees, followerID, followeeID)
				removeMember(s.followers, followeeID, followerID)
				removed = true
			}, nil
		})
	})
	return removed, err
}

func (r *followRepository) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.followees[followerID][followeeID]
	return ok, nil
}

func (r *followRepository) ListFollowers(_ context.Context, userID string) ([]domain.UserSummary, error) {
	return r.list(userID, r.store.followers)
}

func (r *followRepository) ListFollowees(_ context.Context, userID string) ([]domain.UserSummary, error) {
	return r.list(userID, r.store.followees)
}

func (r *followRepository) list(userID string, index map[string]map[string]struct{}) ([]domain.UserSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[userID]; !ok {
		return nil, fmt.Errorf("user %q: %w", userID, domain.ErrUserNotFound)
	}
	return r.store.summaries(index[userID]), nil
}

func addMember(index map[string]map[string]struct{}, owner, member string) {
	set, ok := index[owner]
	if !ok {
		set = make(map[string]struct{})
		index[owner] = set
	}
	set[member] = struct{}{}
}

func removeMember(index map[string]map[string]struct{}, owner, member string) {
	set, ok := index[owner]
	if !ok {
		return
	}
	delete(set, member)
	if len(set) == 0 {
		delete(index, owner)
	}
}
