package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type userRepository struct {
	pool *pgxpool.Pool
	tx   *txn.Coordinator
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool, tx *txn.Coordinator) repository.UserRepository {
	return &userRepository{pool: pool, tx: tx}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, status)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`

	return r.tx.Run(ctx, "add_user", func(ctx context.Context) error {
		return attempt(ctx, r.pool, serializable, func(tx pgx.Tx) error {
			err := tx.QueryRow(ctx, query,
				user.ID,
				user.Name,
				user.Email,
				user.Status,
			).Scan(&user.CreatedAt, &user.UpdatedAt)
			if code, constraint := pgCode(err); code == codeUniqueViolation {
				field := "id"
				if constraint == "users_email_key" {
					field = "email"
				}
				return fmt.Errorf("%s already registered: %w", field, domain.ErrAlreadyExists)
			}
			return err
		})
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, status, created_at, updated_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) (bool, error) {
	const query = `
        UPDATE users SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status<>$1`

	var changed bool
	err := r.tx.Run(ctx, "update_status", func(ctx context.Context) error {
		changed = false
		return attempt(ctx, r.pool, serializable, func(tx pgx.Tx) error {
			cmd, err := tx.Exec(ctx, query, status, id)
			if err != nil {
				return err
			}
			if cmd.RowsAffected() > 0 {
				changed = true
				return nil
			}
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
			}
			return nil
		})
	})
	return changed, err
}
