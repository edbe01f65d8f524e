package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contacts-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// snapshotVersion tags cached payloads. Bumping it after a snapshot-shape
// change makes every existing entry a miss instead of a decode error.
const snapshotVersion = 1

// snapshot is the subset of User that protected routes authorize against.
// Credential fields are deliberately excluded: the refresh token must always
// be checked against the live store, and the password hash has no business
// in a cache.
type snapshot struct {
	V         int    `json:"v"`
	UserID    string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
	Confirmed bool   `json:"confirmed"`
}

func newSnapshot(u *domain.User) snapshot {
	return snapshot{
		V:         snapshotVersion,
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Confirmed: u.Confirmed,
	}
}

func (s snapshot) user() *domain.User {
	return &domain.User{
		UserID:    s.UserID,
		Username:  s.Username,
		Email:     s.Email,
		Avatar:    s.Avatar,
		Confirmed: s.Confirmed,
	}
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Cache is a read-through, write-around cache mapping email to a user
// snapshot, bounded-stale relative to the user store by the configured TTL.
// The cache is an optimization only: any Redis failure degrades to a direct
// store read and is never surfaced to the caller.
type Cache struct {
	rdb   *redis.Client
	users userStore
	ttl   time.Duration
}

func NewCache(rdb *redis.Client, users userStore, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, users: users, ttl: ttl}
}

// Resolve returns the user snapshot for email. On a cache miss the user is
// fetched from the store and cached with the TTL; if the store has no such
// user, ErrNotFound is returned and nothing is cached.
func (c *Cache) Resolve(ctx context.Context, email string) (*domain.User, error) {
	key := cacheKey(email)

	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var snap snapshot
		if jsonErr := json.Unmarshal(b, &snap); jsonErr == nil && snap.V == snapshotVersion {
			return snap.user(), nil
		}
		// Stale format or corrupt entry — treat as a miss.
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("identity cache read failed", "err", err)
	}

	u, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	snap := newSnapshot(u)
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal user snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		slog.Warn("identity cache write failed", "err", err)
	}
	return snap.user(), nil
}

// Invalidate drops the cache entry for email, if any. Best-effort: a failed
// delete only shortens nothing — the entry still expires by TTL.
func (c *Cache) Invalidate(ctx context.Context, email string) {
	if err := c.rdb.Del(ctx, cacheKey(email)).Err(); err != nil {
		slog.Warn("identity cache invalidate failed", "email", email, "err", err)
	}
}

func cacheKey(email string) string {
	return "user:" + email
}
