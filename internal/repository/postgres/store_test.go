package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/persistence"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

// setupStore connects to TEST_POSTGRES_DSN, applies the migrations and
// empties both tables. Tests are skipped when the variable is unset.
func setupStore(t *testing.T) repository.Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../../migrations", zaptest.NewLogger(t)))
	_, err = pool.Exec(ctx, `TRUNCATE follows, users`)
	require.NoError(t, err)

	tx := txn.NewCoordinator(txn.Config{MaxAttempts: 50}, zap.NewNop(), nil)
	return NewRepositoryStore(pool, tx)
}

func addUser(t *testing.T, st repository.Store, id string) {
	t.Helper()
	err := st.Users.Create(context.Background(), &domain.User{
		ID: id, Name: id, Email: id + "@x.com", Status: domain.AccountStatusOpen,
	})
	require.NoError(t, err)
}

func TestPgCode(t *testing.T) {
	for _, code := range []string{codeSerializationFailure, codeDeadlockDetected} {
		got, _ := pgCode(fmt.Errorf("commit: %w", &pgconn.PgError{Code: code}))
		assert.Equal(t, code, got)
	}
	got, constraint := pgCode(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "users_email_key"})
	assert.Equal(t, codeUniqueViolation, got)
	assert.Equal(t, "users_email_key", constraint)

	got, _ = pgCode(errors.New("boom"))
	assert.Empty(t, got)
}

func TestUserRepository_CreateGetDuplicates(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	addUser(t, st, "alice")

	got, err := st.Users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", got.Email)
	assert.Equal(t, domain.AccountStatusOpen, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	err = st.Users.Create(ctx, &domain.User{ID: "alice", Name: "x", Email: "new@x.com", Status: domain.AccountStatusOpen})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = st.Users.Create(ctx, &domain.User{ID: "bob", Name: "x", Email: "alice@x.com", Status: domain.AccountStatusOpen})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = st.Users.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	changed, err := st.Users.UpdateStatus(ctx, "alice", domain.AccountStatusClosed)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = st.Users.UpdateStatus(ctx, "alice", domain.AccountStatusClosed)
	require.NoError(t, err)
	assert.False(t, changed)
	_, err = st.Users.UpdateStatus(ctx, "nobody", domain.AccountStatusClosed)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFollowRepository_FollowUnfollowList(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		addUser(t, st, id)
	}

	created, err := st.Follows.Follow(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = st.Follows.Follow(ctx, "c", "a")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = st.Follows.Follow(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, created)

	followers, err := st.Follows.ListFollowers(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{
		{ID: "b", Name: "b", Email: "b@x.com"},
		{ID: "c", Name: "c", Email: "c@x.com"},
	}, followers)

	followees, err := st.Follows.ListFollowees(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "a", Name: "a", Email: "a@x.com"}}, followees)

	removed, err := st.Follows.Unfollow(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = st.Follows.Unfollow(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, removed)

	ok, err := st.Follows.IsFollowing(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Follows.ListFollowers(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFollowRepository_RejectsMissingAndInactive(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "a")
	addUser(t, st, "closed")
	_, err := st.Users.UpdateStatus(ctx, "closed", domain.AccountStatusClosed)
	require.NoError(t, err)

	_, err = st.Follows.Follow(ctx, "a", "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = st.Follows.Follow(ctx, "ghost", "a")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = st.Follows.Follow(ctx, "a", "closed")
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	followees, err := st.Follows.ListFollowees(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, followees)
}

func TestFollowRepository_ConcurrentFollowsConverge(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "a")
	addUser(t, st, "b")

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Follows.Follow(ctx, "a", "b")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	followers, err := st.Follows.ListFollowers(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, followers, 1)
	followees, err := st.Follows.ListFollowees(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, followees, 1)
}
