package redisstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

func setupStore(t *testing.T) (repository.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tx := txn.NewCoordinator(txn.Config{MaxAttempts: 20}, zap.NewNop(), nil)
	st := NewRepositoryStore(client, "test:", tx)
	t.Cleanup(st.Close)
	return st, mr
}

func addUser(t *testing.T, st repository.Store, id string) {
	t.Helper()
	err := st.Users.Create(context.Background(), &domain.User{
		ID: id, Name: id, Email: id + "@x.com", Status: domain.AccountStatusOpen,
	})
	require.NoError(t, err)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()

	addUser(t, st, "alice")

	got, err := st.Users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", got.Email)
	assert.Equal(t, domain.AccountStatusOpen, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	assert.True(t, mr.Exists("test:user:alice"))
	assert.True(t, mr.Exists("test:email:alice@x.com"))

	ok, err := st.Users.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Users.Exists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Users.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_CreateRejectsDuplicates(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")

	err := st.Users.Create(ctx, &domain.User{ID: "alice", Name: "Other", Email: "other@x.com", Status: domain.AccountStatusOpen})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = st.Users.Create(ctx, &domain.User{ID: "alice2", Name: "Other", Email: "alice@x.com", Status: domain.AccountStatusOpen})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	got, err := st.Users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
}

func TestUserRepository_UpdateStatus(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")

	changed, err := st.Users.UpdateStatus(ctx, "alice", domain.AccountStatusClosed)
	require.NoError(t, err)
	assert.True(t, changed)
	got, err := st.Users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, got.Status)

	changed, err = st.Users.UpdateStatus(ctx, "alice", domain.AccountStatusClosed)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = st.Users.UpdateStatus(ctx, "nobody", domain.AccountStatusClosed)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFollowRepository_FollowAndUnfollowAreSymmetric(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	addUser(t, st, "bob")

	created, err := st.Follows.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)

	members, err := mr.Members("test:followees:alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)
	members, err = mr.Members("test:followers:bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	followees, err := st.Follows.ListFollowees(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "bob", Name: "bob", Email: "bob@x.com"}}, followees)

	followers, err := st.Follows.ListFollowers(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "alice", Name: "alice", Email: "alice@x.com"}}, followers)

	created, err = st.Follows.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)

	removed, err := st.Follows.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = st.Follows.Unfollow(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.False(t, mr.Exists("test:followees:alice"))
	assert.False(t, mr.Exists("test:followers:bob"))
}

func TestFollowRepository_MissingFolloweeLeavesNoEdge(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")

	_, err := st.Follows.Follow(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.False(t, mr.Exists("test:followees:alice"))

	_, err = st.Follows.Follow(ctx, "ghost", "alice")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.False(t, mr.Exists("test:followers:alice"))
}

func TestFollowRepository_ClosedFolloweeRejected(t *testing.T) {
	st, _ := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	addUser(t, st, "bob")
	_, err := st.Users.UpdateStatus(ctx, "bob", domain.AccountStatusClosed)
	require.NoError(t, err)

	_, err = st.Follows.Follow(ctx, "alice", "bob")
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestFollowRepository_UnfollowWithoutUsers(t *testing.T) {
	st, _ := setupStore(t)
	removed, err := st.Follows.Unfollow(context.Background(), "ghost1", "ghost2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestFollowRepository_ListUnknownUser(t *testing.T) {
	st, _ := setupStore(t)
	_, err := st.Follows.ListFollowers(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFollowRepository_ConcurrentFollowsCreateOneEdge(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "alice")
	addUser(t, st, "bob")

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.Follows.Follow(ctx, "alice", "bob")
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	members, err := mr.Members("test:followers:bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestFollowRepository_EdgeKeysDoNotCollideWithUserIDs(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "a:followers")
	addUser(t, st, "a")
	addUser(t, st, "b")

	created, err := st.Follows.Follow(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, created)

	followers, err := st.Follows.ListFollowers(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "b", Name: "b", Email: "b@x.com"}}, followers)

	followees, err := st.Follows.ListFollowees(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "a", Name: "a", Email: "a@x.com"}}, followees)

	followers, err = st.Follows.ListFollowers(ctx, "a:followers")
	require.NoError(t, err)
	assert.Empty(t, followers)

	got, err := st.Users.GetByID(ctx, "a:followers")
	require.NoError(t, err)
	assert.Equal(t, "a:followers@x.com", got.Email)
	assert.True(t, mr.Exists("test:user:a:followers"))
}

func TestFollowRepository_ForeignKeyTypeLeavesNoHalfEdge(t *testing.T) {
	st, mr := setupStore(t)
	ctx := context.Background()
	addUser(t, st, "a")
	addUser(t, st, "b")
	require.NoError(t, mr.Set("test:followers:a", "junk"))

	_, err := st.Follows.Follow(ctx, "b", "a")
	require.Error(t, err)
	assert.False(t, mr.Exists("test:followees:b"))

	ok, err := st.Follows.IsFollowing(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
