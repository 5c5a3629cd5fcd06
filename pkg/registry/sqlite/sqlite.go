package sqlite

import (
	"fmt"

	gormreg "github.com/opencampus/sage/pkg/registry/gorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New creates a new SQLite-backed registry store.
func New(dsn string) (*gormreg.Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return gormreg.New(db)
}
