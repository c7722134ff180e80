package testutil

import (
	"path/filepath"
	"testing"

	"github.com/ayamesys/gearbook/cache"
	"github.com/ayamesys/gearbook/config"
	dbadapter "github.com/ayamesys/gearbook/db"
	"github.com/ayamesys/gearbook/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a throwaway SQLite DB in the test's temp dir and
// runs AutoMigrate. It requires no external services and is safe to use
// in parallel tests (each test gets its own file).
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "gearbook_test.db"),
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates an in-process LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New(cache.Config{}) // empty RedisAddr → LocalCache
	require.NoError(t, err, "SetupTestCache: New")
	return c
}
