package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type userRepository struct {
	store *Store
	tx    *txn.Coordinator
}

// NewUserRepository returns a memory-backed UserRepository.
func NewUserRepository(store *Store, tx *txn.Coordinator) repository.UserRepository {
	return &userRepository{store: store, tx: tx}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	s := r.store
	return r.tx.Run(ctx, "add_user", func(context.Context) error {
		return s.attempt([]string{userKey(user.ID), emailKey(user.Email)}, func() (func(), error) {
			if _, ok := s.users[user.ID]; ok {
				return nil, fmt.Errorf("id %q: %w", user.ID, domain.ErrAlreadyExists)
			}
			if _, ok := s.emails[user.Email]; ok {
				return nil, fmt.Errorf("email %q: %w", user.Email, domain.ErrAlreadyExists)
			}
			return func() {
				now := time.Now().UTC()
				user.CreatedAt, user.UpdatedAt = now, now
				s.users[user.ID] = *user
				s.emails[user.Email] = user.ID
			}, nil
		})
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
	}
	return &u, nil
}

func (r *userRepository) Exists(_ context.Context, id string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.users[id]
	return ok, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) (bool, error) {
	s := r.store
	var changed bool
	err := r.tx.Run(ctx, "update_status", func(context.Context) error {
		changed = false
		return s.attempt([]string{userKey(id)}, func() (func(), error) {
			u, ok := s.users[id]
			if !ok {
				return nil, fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
			}
			if u.Status == status {
				return nil, nil
			}
			return func() {
				u.Status = status
				u.UpdatedAt = time.Now().UTC()
				s.users[id] = u
				changed = true
			}, nil
		})
	})
	return changed, err
}
