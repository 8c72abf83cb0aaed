// Package redisstore keeps users and follow edges in Redis. Multi-key
// mutations run under WATCH and commit with MULTI/EXEC.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/repository"
	"github.com/postspot/user-service/internal/txn"
)

const defaultPrefix = "postspot:"

// keys builds every key name used by the backend. Each kind of record has
// its own namespace, so no id can name another record's key.
type keys struct {
	prefix string
}

func (k keys) user(id string) string      { return k.prefix + "user:" + id }
func (k keys) email(email string) string  { return k.prefix + "email:" + email }
func (k keys) followers(id string) string { return k.prefix + "followers:" + id }
func (k keys) followees(id string) string { return k.prefix + "followees:" + id }

// userDoc is the JSON document stored under the user key.
type userDoc struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Email     string               `json:"email"`
	Status    domain.AccountStatus `json:"account_status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func toDoc(u *domain.User) userDoc {
	return userDoc{ID: u.ID, Name: u.Name, Email: u.Email, Status: u.Status, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (d userDoc) user() *domain.User {
	return &domain.User{ID: d.ID, Name: d.Name, Email: d.Email, Status: d.Status, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

// NewRepositoryStore wires both repositories over one client.
func NewRepositoryStore(client *redis.Client, prefix string, tx *txn.Coordinator) repository.Store {
	return repository.Store{
		Name:    "redis",
		Users:   NewUserRepository(client, prefix, tx),
		Follows: NewFollowRepository(client, prefix, tx),
		Ping:    func(ctx context.Context) error { return client.Ping(ctx).Err() },
		Close:   func() { _ = client.Close() },
	}
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return keys{prefix: prefix}
}

// watch runs fn as one optimistic transaction. A failed EXEC means a
// watched key changed and is reported as txn.ErrConflict.
func watch(ctx context.Context, client *redis.Client, fn func(*redis.Tx) error, watched ...string) error {
	err := client.Watch(ctx, fn, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis: %w", txn.ErrConflict)
	}
	return err
}

// execErr returns the first failure among the commands of an EXEC. Redis
// does not roll back a MULTI block when a command fails at run time.
func execErr(cmds []redis.Cmder, err error) error {
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil {
			return fmt.Errorf("redis %s: %w", cmd.Name(), cerr)
		}
	}
	return nil
}

// requireSets fails if any key holds something other than a set. It runs
// under WATCH, so the MULTI block that follows cannot hit WRONGTYPE.
func requireSets(ctx context.Context, tx *redis.Tx, setKeys ...string) error {
	for _, key := range setKeys {
		kind, err := tx.Type(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("type %s: %w", key, err)
		}
		if kind != "none" && kind != "set" {
			return fmt.Errorf("redis: key %s holds a %s, not a set", key, kind)
		}
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadUser(ctx context.Context, c getter, key, id string) (*domain.User, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %q: %w", id, domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", id, err)
	}
	var doc userDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", id, err)
	}
	return doc.user(), nil
}

func loadSummaries(ctx context.Context, client *redis.Client, k keys, ids []string) ([]domain.UserSummary, error) {
	if len(ids) == 0 {
		return []domain.UserSummary{}, nil
	}
	sort.Strings(ids)
	userKeys := make([]string, len(ids))
	for i, id := range ids {
		userKeys[i] = k.user(id)
	}
	vals, err := client.MGet(ctx, userKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make([]domain.UserSummary, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var doc userDoc
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("decode user %q: %w", ids[i], err)
		}
		out = append(out, domain.UserSummary{ID: doc.ID, Name: doc.Name, Email: doc.Email})
	}
	return out, nil
}
