package utils

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	old := PasswordCost
	PasswordCost = bcrypt.MinCost
	t.Cleanup(func() { PasswordCost = old })

	h, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", h)
	assert.True(t, CheckPasswordHash("secret1", h))
	assert.False(t, CheckPasswordHash("secret2", h))
}

func TestTokenSignerRoundTrip(t *testing.T) {
	s := NewTokenSigner("test-secret", time.Hour)
	tok, err := s.Generate("ana@example.com", "0190a3c2-user")
	require.NoError(t, err)

	id, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "0190a3c2-user", id)
}

func TestTokenSignerRejects(t *testing.T) {
	s := NewTokenSigner("test-secret", time.Hour)

	_, err := s.Verify("this-is-not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenSigner("other-secret", time.Hour).Generate("a@b.c", "u1")
	require.NoError(t, err)
	_, err = s.Verify(other)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenSigner("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := expired.Generate("a@b.c", "u1")
	require.NoError(t, err)
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCacheInvalidatorPurgesNamespace(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := NewCacheInvalidator(rdb)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "cache:events:abc", "x", 0).Err())
	require.NoError(t, rdb.Set(ctx, "cache:events:def", "x", 0).Err())
	require.NoError(t, rdb.Set(ctx, "cache:people:ghi", "x", 0).Err())
	require.NoError(t, rdb.Set(ctx, "quota:user:u1:day", "3", 0).Err())

	n, err := inv.Purge(ctx, CacheEvents)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"cache:people:ghi", "quota:user:u1:day"}, mr.Keys())
}

func TestNilInvalidatorIsNoop(t *testing.T) {
	var inv *CacheInvalidator
	n, err := inv.Purge(context.Background(), CacheEvents)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	log = newLogger(&buf, "nonsense")
	log.Info().Msg("info by default")
	assert.Contains(t, buf.String(), "info by default")
}
