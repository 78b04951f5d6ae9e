package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every bound variable; viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxRequestBodySize)
	assert.Equal(t, "https://5ka.ru/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "miniapp:", cfg.Store.KeyPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Bot.Token, "token must not have a default")

	assert.NoError(t, cfg.ValidateServe())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 2, cfg.Store.RedisDB)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.NoError(t, cfg.ValidateServe())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("WEBAPP_URL")
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "TELEGRAM_BOT_TOKEN=123:abc\nWEBAPP_URL=https://example.org/app\nPORT=1234\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
		os.Unsetenv("WEBAPP_URL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "https://example.org/app", cfg.Bot.WebAppURL)
	assert.Equal(t, 7000, cfg.Server.Port, "process environment wins over the file")
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestValidateBot(t *testing.T) {
	tests := []struct {
		name    string
		bot     BotConfig
		wantErr string
	}{
		{name: "valid", bot: BotConfig{Token: "123:abc", WebAppURL: "https://example.org"}},
		{name: "missing token", bot: BotConfig{WebAppURL: "https://example.org"}, wantErr: "TELEGRAM_BOT_TOKEN is required"},
		{name: "missing url", bot: BotConfig{Token: "123:abc"}, wantErr: "WEBAPP_URL is required"},
		{name: "plain http", bot: BotConfig{Token: "123:abc", WebAppURL: "http://example.org"}, wantErr: "WEBAPP_URL must start with"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Bot: tt.bot, Log: LogConfig{Level: "info", Format: "text"}}
			err := cfg.ValidateBot()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateServe_Errors(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store.Backend = "mongo"
	cfg.Log.Level = "loud"
	cfg.Upstream.BaseURL = "not a url"

	err = cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND must be one of: memory redis")
	assert.Contains(t, err.Error(), "LOG_LEVEL must be one of")
	assert.Contains(t, err.Error(), "UPSTREAM_BASE_URL must be a valid URL")
}

func TestValidateServe_RedisNeedsAddr(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Store.Backend = BackendRedis
	cfg.Store.RedisAddr = ""

	err = cfg.ValidateServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR is required")
}
