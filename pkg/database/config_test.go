package database

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"DB_MAX_OPEN_CONNS", "DB_MIN_OPEN_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	} {
		orig, had := os.LookupEnv(k)
		require.NoError(t, os.Unsetenv(k))
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, orig)
			}
		})
	}
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	clearDBEnv(t)
	require.NoError(t, os.Setenv("DB_PASSWORD", "secret"))

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "pharma", cfg.User)
	assert.Equal(t, "pharma_pipeline", cfg.Database)
	assert.Equal(t, int32(25), cfg.MaxOpenConns)
	assert.Equal(t, int32(2), cfg.MinOpenConns)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
}

func TestLoadConfigFromEnv_MissingPasswordFails(t *testing.T) {
	clearDBEnv(t)
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromEnv_InvalidPortFails(t *testing.T) {
	clearDBEnv(t)
	require.NoError(t, os.Setenv("DB_PASSWORD", "secret"))
	require.NoError(t, os.Setenv("DB_PORT", "not-a-port"))
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{Password: "x", MaxOpenConns: 10, MinOpenConns: 2}
	assert.NoError(t, base.Validate())

	noPassword := base
	noPassword.Password = ""
	assert.Error(t, noPassword.Validate())

	minExceedsMax := base
	minExceedsMax.MinOpenConns = 20
	assert.Error(t, minExceedsMax.Validate())

	zeroMax := base
	zeroMax.MaxOpenConns = 0
	assert.Error(t, zeroMax.Validate())
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.dsn())
}

func TestHasEmbeddedMigrations(t *testing.T) {
	has, err := hasEmbeddedMigrations()
	require.NoError(t, err)
	assert.True(t, has)
}
