package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by SQLite.
// Writes serialize on the file lock, which is what the booking engine's
// check-then-write sequences rely on in this mode.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One writer connection keeps concurrent transactions from tripping
	// over SQLITE_BUSY; MySQL mode is the one for real parallelism.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
