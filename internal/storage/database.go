package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenAndMigrate opens (creating if needed) the sqlite database at the given
// path and brings the audit schema up to date.
func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ActionRecord{}, &CombatRecord{}, &EventRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

var memSeq atomic.Int64

// OpenInMemory opens a throwaway in-memory database, used by tests and the
// simulator. Each call gets its own namespace; shared cache keeps the pool's
// connections pointed at the same data.
func OpenInMemory() (*gorm.DB, error) {
	n := memSeq.Add(1)
	return OpenAndMigrate(fmt.Sprintf("file:warcycle-mem-%d?mode=memory&cache=shared", n))
}
