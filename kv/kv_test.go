package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "events")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "events", []byte(`[1]`)))
	require.NoError(t, s.Set(ctx, "events", []byte(`[1,2]`)))

	v, ok, err := s.Get(ctx, "events")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[1,2]`, string(v))

	require.NoError(t, s.Delete(ctx, "events"))
	_, ok, err = s.Get(ctx, "events")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exercise(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "auth_user", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	v, ok, err := reopened.Get(context.Background(), "auth_user")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"1"}`, string(v))
}

func TestSQLiteClosedFails(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, _, err = s.Get(context.Background(), "events")
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedis(rdb, "device1:")
	exercise(t, s)

	require.NoError(t, s.Set(context.Background(), "people", []byte(`[]`)))
	require.True(t, mr.Exists("device1:people"))
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, _, err := NewRedis(rdb, "").Get(context.Background(), "events")
	require.Error(t, err)
}
