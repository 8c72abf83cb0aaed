package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

type followRepository struct {
	pool *pgxpool.Pool
	tx   *txn.Coordinator
}

// NewFollowRepository returns a Postgres-backed FollowRepository.
func NewFollowRepository(pool *pgxpool.Pool, tx *txn.Coordinator) repository.FollowRepository {
	return &followRepository{pool: pool, tx: tx}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	// Both user rows are share-locked in id order before the insert, so a
	// concurrent status change or delete of either user serializes with us.
	const lockUsers = `
        SELECT id, status FROM users
        WHERE id = ANY($1)
        ORDER BY id
        FOR SHARE`
	const insertEdge = `
        INSERT INTO follows (follower_id, followee_id)
        VALUES ($1, $2)
        ON CONFLICT (follower_id, followee_id) DO NOTHING`

	var created bool
	err := r.tx.Run(ctx, "follow", func(ctx context.Context) error {
		created = false
		return attempt(ctx, r.pool, serializable, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, lockUsers, []string{followerID, followeeID})
			if err != nil {
				return err
			}
			statuses := make(map[string]domain.AccountStatus, 2)
			for rows.Next() {
				var id string
				var status domain.AccountStatus
				if err := rows.Scan(&id, &status); err != nil {
					rows.Close()
					return err
				}
				statuses[id] = status
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}

			if _, ok := statuses[followerID]; !ok {
				return fmt.Errorf("follower %q: %w", followerID, domain.ErrUserNotFound)
			}
			status, ok := statuses[followeeID]
			if !ok {
				return fmt.Errorf("followee %q: %w", followeeID, domain.ErrUserNotFound)
			}
			if status != domain.AccountStatusOpen {
				return fmt.Errorf("followee %q is %s: %w", followeeID, status, domain.ErrUserInactive)
			}

			cmd, err := tx.Exec(ctx, insertEdge, followerID, followeeID)
			if err != nil {
				if code, _ := pgCode(err); code == codeForeignKeyViolation {
					return fmt.Errorf("follow %q -> %q: %w", followerID, followeeID, domain.ErrUserNotFound)
				}
				return err
			}
			created = cmd.RowsAffected() == 1
			return nil
		})
	})
	return created, err
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	const query = `DELETE FROM follows WHERE follower_id=$1 AND followee_id=$2`

	var removed bool
	err := r.tx.Run(ctx, "unfollow", func(ctx context.Context) error {
		removed = false
		return attempt(ctx, r.pool, serializable, func(tx pgx.Tx) error {
			cmd, err := tx.Exec(ctx, query, followerID, followeeID)
			if err != nil {
				return err
			}
			removed = cmd.RowsAffected() == 1
			return nil
		})
	})
	return removed, err
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id=$1 AND followee_id=$2)`,
		followerID, followeeID,
	).Scan(&exists)
	return exists, err
}

func (r *followRepository) ListFollowers(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	const query = `
        SELECT u.id, u.name, u.email
        FROM follows f JOIN users u ON u.id = f.follower_id
        WHERE f.followee_id=$1
        ORDER BY u.id`
	return r.list(ctx, userID, query)
}

func (r *followRepository) ListFollowees(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	const query = `
        SELECT u.id, u.name, u.email
        FROM follows f JOIN users u ON u.id = f.followee_id
        WHERE f.follower_id=$1
        ORDER BY u.id`
	return r.list(ctx, userID, query)
}

func (r *followRepository) list(ctx context.Context, userID, query string) ([]domain.UserSummary, error) {
	result := []domain.UserSummary{}
	err := attempt(ctx, r.pool, readSnapshot, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %q: %w", userID, domain.ErrUserNotFound)
		}

		rows, err := tx.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s domain.UserSummary
			if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
				return err
			}
			result = append(result, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
