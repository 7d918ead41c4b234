package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_DRIVER", "Memory")

	cfg := LoadServer()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "http://localhost:9999", cfg.PublicBaseURL)
	assert.Equal(t, int64(4<<20), cfg.MaxUploadSize)
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN_TTL", "90m")
	t.Setenv("AUTH_RATE_BURST", "nope")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("PUBLIC_BASE_URL", "https://chat.example.com/")
	t.Setenv("DEBUG_ROUTES", "true")

	cfg := LoadServer()
	assert.Equal(t, 90*time.Minute, cfg.AuthTokenTTL)
	assert.Equal(t, 5, cfg.AuthRateBurst)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "https://chat.example.com", cfg.PublicBaseURL)
	assert.True(t, cfg.DebugRoutes)
}

func TestLoadClient(t *testing.T) {
	t.Setenv("MINICHAT_SERVER", "http://chat.test:8083/")
	t.Setenv("MINICHAT_SPLASH", "500ms")
	t.Setenv("MINICHAT_MEDIA_DIR", "/tmp/media")

	cfg := LoadClient()
	assert.Equal(t, "http://chat.test:8083", cfg.ServerURL)
	assert.Equal(t, 500*time.Millisecond, cfg.SplashDuration)
	assert.Equal(t, "/tmp/media", cfg.MediaDir)
}
