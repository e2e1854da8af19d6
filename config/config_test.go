package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  dsn: "file::memory:"
jwt:
  secret: from-file
  access_ttl: 5m
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("APP_JWT_SECRET", "from-env")
	t.Setenv("APP_REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, "blog.activity", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n")
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "mysql"},
		JWT:      JWTConfig{Secret: "s"},
	}
	assert.ErrorContains(t, cfg.Validate(), "mysql")
}
