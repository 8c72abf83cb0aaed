package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/txn"
)

func TestAttempt_DetectsInterleavedCommit(t *testing.T) {
	s := NewStore()
	applied := false
	err := s.attempt([]string{"k"}, func() (func(), error) {
		// stands in for another writer committing between read and write
		s.versions["k"]++
		return func() { applied = true }, nil
	})
	assert.ErrorIs(t, err, txn.ErrConflict)
	assert.False(t, applied)
}

func TestAttempt_NoOpDoesNotBumpVersions(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.attempt([]string{"k"}, func() (func(), error) { return nil, nil }))
	assert.Zero(t, s.versions["k"])

	require.NoError(t, s.attempt([]string{"k"}, func() (func(), error) { return func() {}, nil }))
	assert.Equal(t, uint64(1), s.versions["k"])
}

func TestFollowRepository_ConcurrentFollowsConverge(t *testing.T) {
	tx := txn.NewCoordinator(txn.DefaultConfig(), zap.NewNop(), nil)
	st := NewRepositoryStore(tx)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, st.Users.Create(ctx, &domain.User{ID: id, Name: id, Email: id + "@x.com", Status: domain.AccountStatusOpen}))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.Follows.Follow(ctx, "a", "b")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	followees, err := st.Follows.ListFollowees(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserSummary{{ID: "b", Name: "b", Email: "b@x.com"}}, followees)
}
