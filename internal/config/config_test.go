package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 10, cfg.Queue.Concurrency)

	// Batch transports default to a high request rate; per-item transports
	// to a lower one plus a small concurrency ceiling.
	assert.Equal(t, 500, cfg.FCM.ChunkSize)
	assert.Equal(t, 500, cfg.FCM.MaxPerSecond)
	assert.Equal(t, 50, cfg.WebPush.MaxPerSecond)
	assert.Equal(t, 5, cfg.WebPush.MaxConcurrentSends)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PUSHFAN_SERVER_PORT", "9090")
	t.Setenv("PUSHFAN_FCM_CHUNK_SIZE", "100")
	t.Setenv("PUSHFAN_WEBPUSH_MAX_CONCURRENT_SENDS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 100, cfg.FCM.ChunkSize)
	assert.Equal(t, 2, cfg.WebPush.MaxConcurrentSends)
}

func TestLoad_APIKeysFromEnv(t *testing.T) {
	t.Setenv("PUSHFAN_AUTH_API_KEYS", "key-one, key-two")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Auth.APIKeys)
}
