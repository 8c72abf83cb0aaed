// Package postgres implements the repositories on PostgreSQL with pgx.
// Users live in a users table; each follow edge is one row of a follows
// table keyed by (follower_id, followee_id).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// NewRepositoryStore wires both repositories over one pool. The pool is
// owned by the caller.
func NewRepositoryStore(pool *pgxpool.Pool, tx *txn.Coordinator) repository.Store {
	return repository.Store{
		Name:    "postgres",
		Users:   NewUserRepository(pool, tx),
		Follows: NewFollowRepository(pool, tx),
		Ping:    pool.Ping,
		Close:   func() {},
	}
}

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// attempt runs fn in one database transaction and classifies serialization
// failures and deadlocks as retryable conflicts.
func attempt(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, pool, opts, fn)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("postgres %s: %w", pgErr.Code, txn.ErrConflict)
		}
	}
	return err
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}
