package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("FLUSH_INTERVAL", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("STRICT_INVARIANTS", "")

	LoadConfig()

	assert.Equal(t, "production", AppConfig.Environment)
	assert.Equal(t, time.Second, AppConfig.FlushInterval)
	assert.Equal(t, 4, AppConfig.WorkerCount)
	assert.False(t, AppConfig.StrictInvariants)
	assert.Len(t, AppConfig.JWTSecret, 32)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("FLUSH_INTERVAL", "250ms")
	t.Setenv("WORKER_COUNT", "9")
	t.Setenv("STRICT_INVARIANTS", "false")
	t.Setenv("PAGE_CACHE_TTL", "not-a-duration")

	LoadConfig()

	assert.Equal(t, 250*time.Millisecond, AppConfig.FlushInterval)
	assert.Equal(t, 9, AppConfig.WorkerCount)
	assert.False(t, AppConfig.StrictInvariants)
	assert.Equal(t, 10*time.Minute, AppConfig.PageCacheTTL)
}

func TestGetBool_DefaultsToEnvironment(t *testing.T) {
	t.Setenv("STRICT_INVARIANTS", "")
	assert.True(t, getBool("STRICT_INVARIANTS", true))
	t.Setenv("STRICT_INVARIANTS", "1")
	assert.True(t, getBool("STRICT_INVARIANTS", false))
}
