// Package testutil provides throwaway stores for package tests.
package testutil

import (
	"testing"

	"ideahub/internal/database"
	"ideahub/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewStore returns a migrated in-memory SQLite store private to t
func NewStore(t testing.TB) repository.Store {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := database.NewConnection(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps concurrent dashboard reads from tripping shared-cache table locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewGormStore(db)
}
