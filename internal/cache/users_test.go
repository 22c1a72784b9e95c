package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	mu      sync.Mutex
	users   map[string]model.User
	byID    int
	listIDs [][]string
}

func newCountingStore(users ...model.User) *countingStore {
	s := &countingStore{users: map[string]model.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *countingStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s *countingStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID++
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *countingStore) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, repository.ErrNotFound
}

func (s *countingStore) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listIDs = append(s.listIDs, ids)
	var out []model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

var (
	ada   = model.User{ID: "u1", Name: "Ada", Email: "ada@college.edu", Role: model.RoleFaculty, PasswordHash: "secret"}
	grace = model.User{ID: "u2", Name: "Grace", Email: "grace@college.edu", Role: model.RoleStudent}
)

func TestGetByIDReadsThrough(t *testing.T) {
	mr, rdb := newRedis(t)
	store := newCountingStore(ada)
	c := NewUserCache(store, rdb, time.Minute, discardLogger())
	ctx := context.Background()

	first, err := c.GetByID(ctx, "u1")
	require.NoError(t, err)
	second, err := c.GetByID(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.byID)
	assert.Equal(t, "Ada", second.Name)
	assert.Equal(t, first.Email, second.Email)
	assert.Empty(t, second.PasswordHash)
	assert.True(t, mr.Exists("user:u1"))

	mr.FastForward(2 * time.Minute)
	_, err = c.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.byID)
}

func TestGetByIDMissingIsNotCached(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewUserCache(newCountingStore(), rdb, time.Minute, discardLogger())

	_, err := c.GetByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, mr.Exists("user:nobody"))
}

func TestGetByIDIgnoresMalformedEntry(t *testing.T) {
	mr, rdb := newRedis(t)
	store := newCountingStore(ada)
	c := NewUserCache(store, rdb, time.Minute, discardLogger())
	require.NoError(t, mr.Set("user:u1", "{not json"))

	u, err := c.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, 1, store.byID)
}

func TestListByIDsLoadsOnlyMisses(t *testing.T) {
	_, rdb := newRedis(t)
	store := newCountingStore(ada, grace)
	c := NewUserCache(store, rdb, time.Minute, discardLogger())
	ctx := context.Background()

	_, err := c.GetByID(ctx, "u1")
	require.NoError(t, err)

	users, err := c.ListByIDs(ctx, []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	require.Len(t, store.listIDs, 1)
	assert.Equal(t, []string{"u2", "u3"}, store.listIDs[0])

	users, err = c.ListByIDs(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Len(t, store.listIDs, 1)
}

func TestNilClientPassesThrough(t *testing.T) {
	store := newCountingStore(ada)
	c := NewUserCache(store, nil, time.Minute, discardLogger())
	ctx := context.Background()

	_, err := c.GetByID(ctx, "u1")
	require.NoError(t, err)
	_, err = c.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.byID)

	_, err = c.ListByIDs(ctx, []string{"u1"})
	require.NoError(t, err)
	assert.Len(t, store.listIDs, 1)
}

func TestRedisOutageFallsBackToStore(t *testing.T) {
	mr, rdb := newRedis(t)
	store := newCountingStore(ada)
	c := NewUserCache(store, rdb, time.Minute, discardLogger())
	mr.Close()

	u, err := c.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	users, err := c.ListByIDs(context.Background(), []string{"u1"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, Connect(ctx, config.Redis{}, discardLogger()))

	mr := miniredis.RunT(t)
	rdb := Connect(ctx, config.Redis{Addr: mr.Addr()}, discardLogger())
	require.NotNil(t, rdb)
	_ = rdb.Close()
}
