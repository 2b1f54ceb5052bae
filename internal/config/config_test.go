package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Primary.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, EnvDevelopment, cfg.Observability.Environment)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVICEKIT_PRIMARY__ENV", "production")
	t.Setenv("SERVICEKIT_SERVER__PORT", "9090")
	t.Setenv("SERVICEKIT_SERVER__CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SERVICEKIT_DATABASE__MAX_CONNS", "25")
	t.Setenv("SERVICEKIT_REDIS__ADDRESS", "localhost:6379")
	t.Setenv("SERVICEKIT_OBSERVABILITY__LOGGING__LEVEL", "warn")
	t.Setenv("SERVICEKIT_OBSERVABILITY__LOGGING__SLOW_QUERY_THRESHOLD", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.Observability.IsProduction())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "warn", cfg.Observability.GetLogLevel())
	assert.Equal(t, 250*time.Millisecond, cfg.Observability.Logging.SlowQueryThreshold)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servicekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
primary:
  env: local
server:
  port: "7070"
docs:
  enabled: false
`), 0o600))

	t.Setenv(FileEnvVar, path)
	t.Setenv("SERVICEKIT_SERVER__PORT", "7171")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Primary.Env)
	assert.Equal(t, "7171", cfg.Server.Port, "env wins over file")
	assert.False(t, cfg.Docs.Enabled)
	assert.True(t, cfg.Observability.UseConsole())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv(FileEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad ssl mode", key: "SERVICEKIT_DATABASE__SSL_MODE", value: "sometimes"},
		{name: "bad log level", key: "SERVICEKIT_OBSERVABILITY__LOGGING__LEVEL", value: "loud"},
		{name: "bad log format", key: "SERVICEKIT_OBSERVABILITY__LOGGING__FORMAT", value: "xml"},
		{name: "docs path", key: "SERVICEKIT_DOCS__PATH", value: "docs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "database.max_conns", envKey("SERVICEKIT_DATABASE__MAX_CONNS"))
	assert.Equal(t, "primary.env", envKey("SERVICEKIT_PRIMARY__ENV"))
}
