package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_gateway/internal/storage"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, storage.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, QueueMemory, cfg.Queue.Type)
	assert.Equal(t, 0, cfg.RateLimit.PerMinute)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "2024-10-21", cfg.Provider.AzureAPIVersion)
}

func TestParse_FromEnvironment(t *testing.T) {
	key := strings.Repeat("ab", 32)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("ENCRYPTION_KEY", key)
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/review?sslmode=disable")
	t.Setenv("QUEUE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://x.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "az")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, key, cfg.EncryptionKey)
	assert.Equal(t, storage.DriverPostgres, cfg.DBConfig().Driver)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "localhost:6379", cfg.RedisConfig().Address)
	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
	assert.Equal(t, "gpt-4o", cfg.ProviderEnv().AzureDeployment)
	assert.Equal(t, "review-audit", cfg.AuditQueueConfig().QueueName)
}

func TestParse_LocalEnablesDebug(t *testing.T) {
	t.Setenv("LOCAL", "true")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mysql"}, "DATABASE_DRIVER"},
		{"unknown queue", map[string]string{"QUEUE_TYPE": "kafka"}, "QUEUE_TYPE"},
		{"redis queue without redis", map[string]string{"QUEUE_TYPE": "redis"}, "REDIS_ADDR"},
		{"short key", map[string]string{"ENCRYPTION_KEY": "abcd"}, "ENCRYPTION_KEY"},
		{"non hex key", map[string]string{"ENCRYPTION_KEY": strings.Repeat("zz", 32)}, "ENCRYPTION_KEY"},
		{"negative rate", map[string]string{"RATE_LIMIT_PER_MINUTE": "-1"}, "RATE_LIMIT_PER_MINUTE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_PORT=7070\nGEMINI_API_KEY=from-file\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Register cleanup for the variables the file sets.
	t.Setenv("HTTP_PORT", "")
	os.Unsetenv("HTTP_PORT")
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr())
	assert.Equal(t, "from-file", cfg.Provider.GeminiAPIKey)
}
