package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type followRepository struct {
	client *redis.Client
	keys   keys
	tx     *txn.Coordinator
}

// NewFollowRepository returns a Redis-backed FollowRepository. Each user has
// a followers set and a followees set; an edge lives in both.
func NewFollowRepository(client *redis.Client, prefix string, tx *txn.Coordinator) repository.FollowRepository {
	return &followRepository{client: client, keys: newKeys(prefix), tx: tx}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	followerKey, followeeKey := r.keys.user(followerID), r.keys.user(followeeID)
	outKey, inKey := r.keys.followees(followerID), r.keys.followers(followeeID)

	var created bool
	err := r.tx.Run(ctx, "follow", func(ctx context.Context) error {
		created = false
		return watch(ctx, r.client, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, followerKey).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("follower %q: %w", followerID, domain.ErrUserNotFound)
			}
			followee, err := loadUser(ctx, tx, followeeKey, followeeID)
			if err != nil {
				return err
			}
			if followee.Status != domain.AccountStatusOpen {
				return fmt.Errorf("followee %q is %s: %w", followeeID, followee.Status, domain.ErrUserInactive)
			}
			if err := requireSets(ctx, tx, outKey, inKey); err != nil {
				return err
			}

			already, err := tx.SIsMember(ctx, outKey, followeeID).Result()
			if err != nil {
				return err
			}
			if already {
				return nil
			}

			cmds, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SAdd(ctx, outKey, followeeID)
				pipe.SAdd(ctx, inKey, followerID)
				return nil
			})
			if err := execErr(cmds, err); err != nil {
				return err
			}
			created = true
			return nil
		}, followerKey, followeeKey, outKey, inKey)
	})
	return created, err
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	outKey, inKey := r.keys.followees(followerID), r.keys.followers(followeeID)

	var removed bool
	err := r.tx.Run(ctx, "unfollow", func(ctx context.Context) error {
		removed = false
		return watch(ctx, r.client, func(tx *redis.Tx) error {
			if err := requireSets(ctx, tx, outKey, inKey); err != nil {
				return err
			}
			present, err := tx.SIsMember(ctx, outKey, followeeID).Result()
			if err != nil {
				return err
			}
			if !present {
				return nil
			}
			cmds, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SRem(ctx, outKey, followeeID)
				pipe.SRem(ctx, inKey, followerID)
				return nil
			})
			if err := execErr(cmds, err); err != nil {
				return err
			}
			removed = true
			return nil
		}, outKey, inKey)
	})
	return removed, err
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.keys.followees(followerID), followeeID).Result()
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return ok, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	return r.list(ctx, userID, r.keys.followers(userID))
}

func (r *followRepository) ListFollowees(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	return r.list(ctx, userID, r.keys.followees(userID))
}

func (r *followRepository) list(ctx context.Context, userID, setKey string) ([]domain.UserSummary, error) {
	n, err := r.client.Exists(ctx, r.keys.user(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("exists %q: %w", userID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("user %q: %w", userID, domain.ErrUserNotFound)
	}
	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("members %s: %w", setKey, err)
	}
	return loadSummaries(ctx, r.client, r.keys, ids)
}
