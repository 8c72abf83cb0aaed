// Package memory is an in-process backend with optimistic multi-key
// transactions. It is used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

// Store holds every collection plus a version per logical key.
type Store struct {
	mu        sync.Mutex
	users     map[string]domain.User
	emails    map[string]string
	followers map[string]map[string]struct{}
	followees map[string]map[string]struct{}
	versions  map[string]uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
		followers: make(map[string]map[string]struct{}),
		followees: make(map[string]map[string]struct{}),
		versions:  make(map[string]uint64),
	}
}

// NewRepositoryStore wires user and follow repositories over one Store.
func NewRepositoryStore(tx *txn.Coordinator) repository.Store {
	s := NewStore()
	return repository.Store{
		Name:    "memory",
		Users:   NewUserRepository(s, tx),
		Follows: NewFollowRepository(s, tx),
		Ping:    func(context.Context) error { return nil },
		Close:   func() {},
	}
}

func userKey(id string) string      { return "user:" + id }
func emailKey(email string) string  { return "email:" + email }
func followersKey(id string) string { return "followers:" + id }
func followeesKey(id string) string { return "followees:" + id }

// attempt is one optimistic transaction. read runs under the lock and
// returns the write to apply, or nil for a no-op. The write is applied only
// if no key in keys was committed by someone else since read observed it.
func (s *Store) attempt(keys []string, read func() (func(), error)) error {
	s.mu.Lock()
	seen := make([]uint64, len(keys))
	for i, k := range keys {
		seen[i] = s.versions[k]
	}
	write, err := read()
	s.mu.Unlock()
	if err != nil || write == nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, k := range keys {
		if s.versions[k] != seen[i] {
			return fmt.Errorf("memory: key %s changed: %w", k, txn.ErrConflict)
		}
	}
	write()
	for _, k := range keys {
		s.versions[k]++
	}
	return nil
}

func (s *Store) summaries(ids map[string]struct{}) []domain.UserSummary {
	out := make([]domain.UserSummary, 0, len(ids))
	for id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
