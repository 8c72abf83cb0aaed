package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type userRepository struct {
	client *redis.Client
	keys   keys
	tx     *txn.Coordinator
}

// NewUserRepository returns a Redis-backed UserRepository.
func NewUserRepository(client *redis.Client, prefix string, tx *txn.Coordinator) repository.UserRepository {
	return &userRepository{client: client, keys: newKeys(prefix), tx: tx}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	userKey, emailKey := r.keys.user(user.ID), r.keys.email(user.Email)

	return r.tx.Run(ctx, "add_user", func(ctx context.Context) error {
		return watch(ctx, r.client, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, userKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("id %q: %w", user.ID, domain.ErrAlreadyExists)
			}
			n, err = tx.Exists(ctx, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("email %q: %w", user.Email, domain.ErrAlreadyExists)
			}

			now := time.Now().UTC()
			doc := toDoc(user)
			doc.CreatedAt, doc.UpdatedAt = now, now
			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}

			cmds, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, userKey, raw, 0)
				pipe.Set(ctx, emailKey, user.ID, 0)
				return nil
			})
			if err := execErr(cmds, err); err != nil {
				return err
			}
			user.CreatedAt, user.UpdatedAt = now, now
			return nil
		}, userKey, emailKey)
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return loadUser(ctx, r.client, r.keys.user(id), id)
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keys.user(id)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", id, err)
	}
	return n > 0, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) (bool, error) {
	userKey := r.keys.user(id)

	var changed bool
	err := r.tx.Run(ctx, "update_status", func(ctx context.Context) error {
		changed = false
		return watch(ctx, r.client, func(tx *redis.Tx) error {
			user, err := loadUser(ctx, tx, userKey, id)
			if err != nil {
				return err
			}
			if user.Status == status {
				return nil
			}
			user.Status = status
			user.UpdatedAt = time.Now().UTC()
			raw, err := json.Marshal(toDoc(user))
			if err != nil {
				return err
			}
			cmds, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, userKey, raw, 0)
				return nil
			})
			if err := execErr(cmds, err); err != nil {
				return err
			}
			changed = true
			return nil
		}, userKey)
	})
	return changed, err
}
