package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGO_URI", "STORE_DRIVER", "CONFLICT_RETRIES", "CORS_ORIGINS", "GIN_MODE"} {
		t.Setenv(key, "")
	}

	cfg := fromEnv()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, 1, cfg.ConflictRetries)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.Debug)
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("CONFLICT_RETRIES", "3")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("AUTO_TRANSFER_CRON", "0 */10 * * * *")

	cfg := fromEnv()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.ConflictRetries)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "0 */10 * * * *", cfg.AutoTransferCron)

	t.Setenv("PORT", "not-a-number")
	t.Setenv("STORE_DRIVER", "redis")
	cfg = fromEnv()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
}
