package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("CHECKIN_BACKEND", "")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, KVSQLite, cfg.KVDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.False(t, cfg.Seeded())
}

func TestOverrides(t *testing.T) {
	t.Setenv("CHECKIN_BACKEND", "REMOTE")
	t.Setenv("CHECKIN_STORE_TIMEOUT", "750ms")
	t.Setenv("CHECKIN_USER_RPS", "1.5")
	t.Setenv("CHECKIN_SEED_EMAIL", "demo@example.com")
	t.Setenv("CHECKIN_SEED_PASSWORD", "demo123")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.InDelta(t, 1.5, cfg.UserRPS, 1e-9)
	assert.True(t, cfg.Seeded())
}

func TestInvalidValuesAreReported(t *testing.T) {
	t.Setenv("CHECKIN_KV_DRIVER", "etcd")
	t.Setenv("JWT_TTL", "soon")
	t.Setenv("CHECKIN_PHOTO_DRIVER", "s3")
	t.Setenv("CHECKIN_S3_BUCKET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECKIN_KV_DRIVER")
	assert.Contains(t, err.Error(), "JWT_TTL")
	assert.Contains(t, err.Error(), "CHECKIN_S3_BUCKET")
}
