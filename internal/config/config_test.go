package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCore(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "root",
		"DB_HOST":                "localhost",
		"DB_PORT":                "3306",
		"DB_NAME":                "picode",
		"JWT_SECRET":             "secret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
		"BCRYPT_COST":            "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	setCore(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.False(t, cfg.IsProduction())
}

func TestLoadReportsEveryMissingVar(t *testing.T) {
	setCore(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BCRYPT_COST", "ten")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoadSocketConfigKeepsProbeBelowTimeout(t *testing.T) {
	t.Setenv("WS_PROBE_INTERVAL", "90s")
	t.Setenv("WS_PONG_TIMEOUT", "60s")
	cfg := LoadSocketConfig()
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Less(t, cfg.ProbeInterval, cfg.PongTimeout)
}

func TestRateLimitPublic(t *testing.T) {
	t.Setenv("RATE_LIMIT_PUBLIC_CAPACITY", "3")
	cfg := LoadRateLimitConfig()
	pub := cfg.Public()
	assert.Equal(t, 3, pub.Capacity)
	assert.Equal(t, "ip_route", pub.KeyStrategy)
	assert.NotEqual(t, cfg.Prefix, pub.Prefix)
}

func TestStorageDisabledWithoutBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "")
	assert.False(t, LoadStorageConfig().Enabled)
	t.Setenv("S3_BUCKET", "uploads")
	assert.True(t, LoadStorageConfig().Enabled)
}

func TestLoadRedisConfigHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "true")

	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.True(t, cfg.TLS)

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.NotNil(t, opts.TLSConfig)
}

func TestRedisURLOverridesFields(t *testing.T) {
	opts, err := RedisConfig{URL: "redis://:pw@10.0.0.1:6390/2", Addr: "ignored:1"}.options()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:6390", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
}
