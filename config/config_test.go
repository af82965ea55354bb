package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, "tourbook", cfg.DatabaseName)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "memory", cfg.LockBackend)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 3, cfg.RatingMaxAttempts)
	assert.False(t, cfg.BookingConfirmationEnabled)
	assert.Equal(t, "jwt", cfg.AuthProvider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("RATING_MAX_ATTEMPTS", "5")
	t.Setenv("BOOKING_CONFIRMATION_ENABLED", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 5, cfg.RatingMaxAttempts)
	assert.True(t, cfg.BookingConfirmationEnabled)
}

func TestLoad_ClampsRatingAttempts(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RATING_MAX_ATTEMPTS", "0")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.RatingMaxAttempts)
}

func TestLoad_RedisLockMustOutlastStoreCalls(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("STORE_TIMEOUT", "5s")
	t.Setenv("LOCK_TTL", "15s")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCK_TTL")

	t.Setenv("LOCK_TTL", "16s")
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 16*time.Second, cfg.LockTTL)
}

func TestLoad_InMemoryLockIgnoresTTL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOCK_TTL", "1s")

	_, err := Load(viper.New())
	assert.NoError(t, err)
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := Load(viper.New())
	assert.Error(t, err)
}
