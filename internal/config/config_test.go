package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PRESIGN_TTL", "STORAGE_BUCKET", "MAX_UPLOAD_BYTES", "CORS_ORIGINS", "APP_ENV"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, time.Hour, cfg.PresignTTL)
	assert.Equal(t, "posts", cfg.StorageBucket)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:8081"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PRESIGN_TTL", "15m")
	t.Setenv("STORAGE_TIMEOUT", "3")
	t.Setenv("DB_TIMEOUT", "soon")
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("STORAGE_USE_SSL", "true")
	t.Setenv("CORS_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
	assert.Equal(t, 3*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, int32(8), cfg.DBMaxConns)
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsProduction())
}
