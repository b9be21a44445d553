package storage

import (
	"context"
	"os"
	"strconv"
	"testing"

	"seasonbot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	s, err := NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
	if addr := os.Getenv("SEASONBOT_TEST_REDIS_ADDR"); addr != "" {
		db, _ := strconv.Atoi(os.Getenv("SEASONBOT_TEST_REDIS_DB"))
		s, err := NewRedisStore(context.Background(), Config{Backend: BackendRedis, RedisAddr: addr, RedisDB: db})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		out["redis"] = s
	}
	return out
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			prefix := "test-" + name + "-"

			_, err := s.Get(ctx, prefix+"missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, prefix+"a:chat", "one"))
			require.NoError(t, s.Set(ctx, prefix+"a:chat", "two"))
			require.NoError(t, s.Set(ctx, prefix+"b:chat", "three"))
			require.NoError(t, s.Set(ctx, prefix+"a:draft", "{}"))

			v, err := s.Get(ctx, prefix+"a:chat")
			require.NoError(t, err)
			assert.Equal(t, "two", v)

			keys, err := s.KeysWithSuffix(ctx, ":chat")
			require.NoError(t, err)
			assert.Subset(t, keys, []string{prefix + "a:chat", prefix + "b:chat"})
			assert.NotContains(t, keys, prefix+"a:draft")

			require.NoError(t, s.Delete(ctx, prefix+"a:chat", prefix+"b:chat", prefix+"a:draft", prefix+"never"))
			_, err = s.Get(ctx, prefix+"a:chat")
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, s.Delete(ctx))
		})
	}
}

func TestGormStore_SuffixIsLiteral(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "x:chat_v1", "1"))
	require.NoError(t, s.Set(ctx, "y:chatXv1", "2"))

	keys, err := s.KeysWithSuffix(ctx, ":chat_v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x:chat_v1"}, keys)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Backend: BackendSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.Error(t, err)
}
