package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/realign/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "realign.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, config.StoreMemory, cfg.Store)

	active, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
advice_base_url: https://advice.example.com
request_timeout: 5s
store: redis
redis:
  addr: cache:6379
  ttl: 1h
encryption_key: `+testKey+`
`)
	t.Setenv("REALIGN_REQUEST_TIMEOUT", "10s")
	t.Setenv("REALIGN_REDIS_DB", "3")
	t.Setenv("REALIGN_TASK_LIMIT", "8")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://advice.example.com", cfg.AdviceBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout, "environment wins over the file")
	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "realign:session:", cfg.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, 8, cfg.TaskLimit)

	active, _, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
}

func TestLoad_FallbackKeysFromEnv(t *testing.T) {
	t.Setenv("REALIGN_ENCRYPTION_KEY", testKey)
	t.Setenv("REALIGN_FALLBACK_KEYS", testKey+","+testKey)

	cfg, err := config.Load("")
	require.NoError(t, err)

	_, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, fallback, 2)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "advise_base_url: typo\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advise_base_url")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Default()
	cfg.AdviceBaseURL = " "
	cfg.RequestTimeout = 0
	cfg.Store = "sqlite"
	cfg.EncryptionKey = "zz"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"advice_base_url", "request_timeout", `unknown store "sqlite"`, "not valid hex"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
}

func TestDecode_EmptyInput(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.Decode(strings.NewReader("\n"), cfg))
	assert.Equal(t, config.Default(), cfg)
}
