// Package cache provides a Redis read-through cache for user lookups.
//
// Every authenticated request resolves its caller and every event listing
// resolves organizer and participant names, so user reads dominate. Users
// are immutable once created, which keeps invalidation trivial.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/redis/go-redis/v9"
)

// Connect dials Redis. It returns a nil client, and logs why, when caching
// is not configured or the server is unreachable.
func Connect(ctx context.Context, cfg config.Redis, logger *slog.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not set, user cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable, user cache disabled", "addr", cfg.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("connected to redis", "addr", cfg.Addr)
	return rdb
}

// UserCache wraps a UserStore and caches GetByID and ListByIDs results.
// Cached users never carry a password hash; GetByEmail, which login uses,
// always reads the store.
type UserCache struct {
	repository.UserStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ repository.UserStore = (*UserCache)(nil)

// NewUserCache wraps store. A nil rdb disables caching.
func NewUserCache(store repository.UserStore, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *UserCache {
	return &UserCache{UserStore: store, rdb: rdb, ttl: ttl, logger: logger}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// GetByID returns the cached user or loads and caches it.
func (c *UserCache) GetByID(ctx context.Context, id string) (*model.User, error) {
	if c.rdb == nil {
		return c.UserStore.GetByID(ctx, id)
	}

	data, err := c.rdb.Get(ctx, userKey(id)).Bytes()
	switch {
	case err == nil:
		var u model.User
		if jsonErr := json.Unmarshal(data, &u); jsonErr == nil {
			return &u, nil
		}
		c.logger.Warn("discarding malformed cached user", "user_id", id)
	case !errors.Is(err, redis.Nil):
		c.logger.Error("redis GET failed", "user_id", id, "error", err)
	}

	u, err := c.UserStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, []model.User{*u})
	return u, nil
}

// ListByIDs serves hits with one MGET and loads the misses from the store.
func (c *UserCache) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if c.rdb == nil || len(ids) == 0 {
		return c.UserStore.ListByIDs(ctx, ids)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("redis MGET failed", "keys", len(keys), "error", err)
		return c.UserStore.ListByIDs(ctx, ids)
	}

	users := make([]model.User, 0, len(ids))
	var missing []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var u model.User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		users = append(users, u)
	}
	if len(missing) == 0 {
		return users, nil
	}

	loaded, err := c.UserStore.ListByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.store(ctx, loaded)
	return append(users, loaded...), nil
}

func (c *UserCache) store(ctx context.Context, users []model.User) {
	if len(users) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for i := range users {
		data, err := json.Marshal(&users[i])
		if err != nil {
			c.logger.Error("failed to marshal user for caching", "user_id", users[i].ID, "error", err)
			continue
		}
		pipe.Set(ctx, userKey(users[i].ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("redis SET failed", "users", len(users), "error", err)
	}
}
