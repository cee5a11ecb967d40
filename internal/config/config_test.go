package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQL, cfg.StoreBackend)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://postgres:postgres@db:5432/postgres?sslmode=disable", cfg.DatabaseDSN)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, DuplicatesReject, cfg.EvaluationDuplicates)
	assert.Equal(t, []byte(devJWTSecret), cfg.JWTSecret)
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "dynamo")
	t.Setenv("GIN_MODE", "")
	t.Setenv("APP_ENV", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMongoNeedsURI(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("APP_ENV", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b,,c"))
	assert.Empty(t, splitList(""))
}
