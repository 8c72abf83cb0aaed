package repository

import (
	"context"

	"github.com/postspot/user-service/internal/domain"
)

// UserRepository defines persistence access for directory records.
//
// Create fails with domain.ErrAlreadyExists when the id or the email is
// already taken, GetByID and UpdateStatus with domain.ErrUserNotFound.
// UpdateStatus reports whether the stored status changed.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) (bool, error)
}
